package api

import (
	"net/http"

	"github.com/NordCoder/tifi/internal/domain/user"
	"github.com/NordCoder/tifi/internal/services/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type resetRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	User        *user.User `json:"user"`
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
}

func tokenPair(u *user.User, access string) authResponse {
	return authResponse{User: u, AccessToken: access, TokenType: "bearer"}
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "body", err)
		return
	}

	s.log.Info("auth.register", zap.String("email", req.Email))

	u, access, err := s.auth.SignUp(c.Request.Context(), auth.SignUpInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	success(c, http.StatusCreated, "User registered successfully", tokenPair(u, access))
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "body", err)
		return
	}

	u, access, err := s.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	success(c, http.StatusOK, "Login successful", tokenPair(u, access))
}

func (s *Server) requestMagicLink(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "body", err)
		return
	}

	if err := s.auth.RequestMagicLink(c.Request.Context(), req.Email); err != nil {
		writeError(c, err)
		return
	}
	success(c, http.StatusOK, "If the account exists, a magic link has been sent", nil)
}

func (s *Server) verifyMagicLink(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "body", err)
		return
	}

	u, access, err := s.auth.VerifyMagicLink(c.Request.Context(), req.Token)
	if err != nil {
		writeError(c, err)
		return
	}
	success(c, http.StatusOK, "Login successful", tokenPair(u, access))
}

func (s *Server) forgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "body", err)
		return
	}

	if err := s.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		writeError(c, err)
		return
	}
	success(c, http.StatusOK, "If the account exists, a password reset link has been sent", nil)
}

func (s *Server) resetPassword(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "body", err)
		return
	}

	if err := s.auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		writeError(c, err)
		return
	}
	success(c, http.StatusOK, "Password reset successfully", nil)
}
