package api

import (
	"net/http"

	"github.com/NordCoder/tifi/internal/domain/notification"
	"github.com/gin-gonic/gin"
)

type createNotificationRequest struct {
	ReceiverID string `json:"receiver_id" binding:"required"`
	Title      string `json:"title" binding:"required,max=255"`
	Message    string `json:"message"`
	Type       string `json:"notification_type" binding:"omitempty,oneof=warning info success"`
}

func (s *Server) listNotifications(c *gin.Context) {
	var filter *notification.Status
	if raw, ok := c.GetQuery("status"); ok && raw != "" {
		st, err := notification.ParseStatus(raw)
		if err != nil {
			invalidInput(c, "query", err)
			return
		}
		filter = &st
	}

	items, err := s.ledger.ListForUser(c.Request.Context(), currentUserID(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []*notification.Notification{}
	}
	success(c, http.StatusOK, "Notifications retrieved successfully", items)
}

func (s *Server) markRead(c *gin.Context) {
	n, err := s.ledger.MarkRead(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	success(c, http.StatusOK, "Notification marked as read", n)
}

func (s *Server) markAllRead(c *gin.Context) {
	count, err := s.ledger.MarkAllRead(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	success(c, http.StatusOK, "All notifications marked as read", gin.H{"updated": count})
}

func (s *Server) createNotification(c *gin.Context) {
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "body", err)
		return
	}

	n, err := s.ledger.Record(c.Request.Context(), req.ReceiverID, req.Title, req.Message, notification.Type(req.Type))
	if err != nil {
		writeError(c, err)
		return
	}
	success(c, http.StatusCreated, "Notification created successfully", n)
}
