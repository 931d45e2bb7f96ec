package api

import (
	"context"
	"net/http"

	"github.com/NordCoder/tifi/internal/domain/notification"
	"github.com/NordCoder/tifi/internal/domain/user"
	"github.com/NordCoder/tifi/internal/obs"
	"github.com/NordCoder/tifi/internal/services/auth"
	"github.com/NordCoder/tifi/internal/services/dispatcher"
	"github.com/NordCoder/tifi/internal/telemetry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthService interface {
	SignUp(ctx context.Context, in auth.SignUpInput) (*user.User, string, error)
	SignIn(ctx context.Context, email, password string) (*user.User, string, error)
	RequestMagicLink(ctx context.Context, email string) error
	VerifyMagicLink(ctx context.Context, token string) (*user.User, string, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ParseAccess(token string) (string, error)
}

type Ledger interface {
	Record(ctx context.Context, receiverID, title, message string, typ notification.Type) (*notification.Notification, error)
	MarkRead(ctx context.Context, id, requesterID string) (*notification.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	ListForUser(ctx context.Context, userID string, status *notification.Status) ([]*notification.Notification, error)
}

type Opts struct {
	Logger         *zap.Logger
	CORSOrigins    []string
	TrustedProxies []string
	Checks         map[string]obs.Check
}

type Server struct {
	log        *zap.Logger
	auth       AuthService
	ledger     Ledger
	counter    *telemetry.RequestCounter
	dispatcher *dispatcher.Dispatcher
	checks     map[string]obs.Check
	engine     *gin.Engine
}

func NewServer(a AuthService, l Ledger, counter *telemetry.RequestCounter, d *dispatcher.Dispatcher, o Opts) (*Server, error) {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		log:        log.With(zap.String("component", "http")),
		auth:       a,
		ledger:     l,
		counter:    counter,
		dispatcher: d,
		checks:     o.Checks,
	}

	gin.SetMode(gin.ReleaseMode)
	useJSONFieldNames()
	e := gin.New()
	if err := e.SetTrustedProxies(o.TrustedProxies); err != nil {
		return nil, err
	}
	e.HandleMethodNotAllowed = true
	e.NoRoute(func(c *gin.Context) { fail(c, http.StatusNotFound, "Not Found") })
	e.NoMethod(func(c *gin.Context) { fail(c, http.StatusMethodNotAllowed, "Method Not Allowed") })

	// Recovery sits outside the dispatcher so a panicking handler still flushes its tasks.
	e.Use(
		Recovery(s.log),
		telemetry.Middleware(counter),
		AccessLog(s.log),
		CORS(o.CORSOrigins),
		dispatcher.Middleware(d),
	)
	s.routes(e)
	s.engine = e
	return s, nil
}

func (s *Server) routes(e *gin.Engine) {
	e.GET("/", s.home)
	e.GET("/request-stats", s.requestStats)
	e.GET("/healthz", s.healthz)

	v1 := e.Group("/api/v1")

	a := v1.Group("/auth")
	a.POST("/register", s.register)
	a.POST("/login", s.login)
	a.POST("/magic-link", s.requestMagicLink)
	a.POST("/magic-link/verify", s.verifyMagicLink)
	a.POST("/forgot-password", s.forgotPassword)
	a.POST("/reset-password", s.resetPassword)

	n := v1.Group("/notifications", RequireUser(s.auth.ParseAccess))
	n.GET("", s.listNotifications)
	n.POST("", s.createNotification)
	n.PATCH("/read-all", s.markAllRead)
	n.PATCH("/:id/read", s.markRead)
}

func (s *Server) Handler() http.Handler { return s.engine }
