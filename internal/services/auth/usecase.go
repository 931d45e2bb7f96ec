package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	tokens "github.com/NordCoder/tifi/internal/auth"
	"github.com/NordCoder/tifi/internal/domain/ident"
	"github.com/NordCoder/tifi/internal/domain/user"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInactiveUser       = errors.New("user is not active")
)

const minPasswordLen = 8

// Notifier fires the user-facing side effects of each flow.
type Notifier interface {
	NotifySignup(ctx context.Context, u *user.User) error
	NotifyMagicLink(ctx context.Context, u *user.User, url string) error
	NotifyPasswordReset(ctx context.Context, u *user.User, url string) error
	NotifyPasswordResetComplete(ctx context.Context, u *user.User) error
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Holder defers side effects scheduled under a context until the caller
// decides whether they happened.
type Holder interface {
	Hold(ctx context.Context) (context.Context, func(keep bool))
}

type Config struct {
	Secret           []byte
	AccessTTL        time.Duration
	LinkTTL          time.Duration
	MagicLinkURL     string
	ResetPasswordURL string
	BcryptCost       int
	Now              func() time.Time
	// Hold, when set, keeps the notifier's detached work back until the
	// transaction commits and drops it on rollback.
	Hold Holder
}

type Usecase struct {
	users    user.Repo
	tx       Transactor
	notifier Notifier
	signer   *tokens.Signer
	cfg      Config
	log      *zap.Logger
}

func NewUseCase(users user.Repo, tx Transactor, notifier Notifier, cfg Config, log *zap.Logger) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 24 * time.Hour
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = 15 * time.Minute
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Usecase{
		users:    users,
		tx:       tx,
		notifier: notifier,
		signer:   tokens.NewSigner(cfg.Secret, cfg.Now),
		cfg:      cfg,
		log:      log.With(zap.String("component", "auth")),
	}
}

type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// SignUp creates the account and records the welcome notification in one transaction.
func (u *Usecase) SignUp(ctx context.Context, in SignUpInput) (*user.User, string, error) {
	email, err := parseEmail(in.Email)
	if err != nil {
		return nil, "", err
	}
	hash, err := u.hash(in.Password)
	if err != nil {
		return nil, "", err
	}

	newUser := &user.User{
		ID:           ident.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsActive:     true,
	}
	err = u.inTx(ctx, func(ctx context.Context) error {
		if err := u.users.Create(ctx, newUser); err != nil {
			return err
		}
		return u.notifier.NotifySignup(ctx, newUser)
	})
	if err != nil {
		return nil, "", err
	}

	access, err := u.signer.Sign(newUser.ID, tokens.PurposeAccess, u.cfg.AccessTTL, "")
	if err != nil {
		return nil, "", err
	}
	u.log.Info("user signed up", zap.String("user_id", newUser.ID))
	return newUser, access, nil
}

func (u *Usecase) SignIn(ctx context.Context, email, password string) (*user.User, string, error) {
	rec, err := u.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !rec.IsActive {
		return nil, "", ErrInactiveUser
	}
	access, err := u.signer.Sign(rec.ID, tokens.PurposeAccess, u.cfg.AccessTTL, "")
	if err != nil {
		return nil, "", err
	}
	return rec, access, nil
}

// RequestMagicLink mails a sign-in link. Unknown emails succeed silently.
func (u *Usecase) RequestMagicLink(ctx context.Context, email string) error {
	rec, err := u.lookup(ctx, email)
	if err != nil || rec == nil {
		return err
	}
	tok, err := u.signer.Sign(rec.ID, tokens.PurposeMagicLink, u.cfg.LinkTTL, "")
	if err != nil {
		return err
	}
	link, err := withToken(u.cfg.MagicLinkURL, tok)
	if err != nil {
		return err
	}
	return u.notifier.NotifyMagicLink(ctx, rec, link)
}

func (u *Usecase) VerifyMagicLink(ctx context.Context, token string) (*user.User, string, error) {
	cl, err := u.signer.Parse(token, tokens.PurposeMagicLink)
	if err != nil {
		return nil, "", ErrInvalidToken
	}
	rec, err := u.users.GetByID(ctx, cl.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, "", ErrInvalidToken
		}
		return nil, "", err
	}
	if !rec.IsActive {
		return nil, "", ErrInactiveUser
	}
	access, err := u.signer.Sign(rec.ID, tokens.PurposeAccess, u.cfg.AccessTTL, "")
	if err != nil {
		return nil, "", err
	}
	return rec, access, nil
}

// RequestPasswordReset mails a reset link. Unknown emails succeed silently.
func (u *Usecase) RequestPasswordReset(ctx context.Context, email string) error {
	rec, err := u.lookup(ctx, email)
	if err != nil || rec == nil {
		return err
	}
	tok, err := u.signer.Sign(rec.ID, tokens.PurposeReset, u.cfg.LinkTTL, tokens.Fingerprint(rec.PasswordHash))
	if err != nil {
		return err
	}
	link, err := withToken(u.cfg.ResetPasswordURL, tok)
	if err != nil {
		return err
	}
	return u.notifier.NotifyPasswordReset(ctx, rec, link)
}

// ResetPassword sets a new password. A token stops working once the password it
// was issued against has changed, so each link can be used once.
func (u *Usecase) ResetPassword(ctx context.Context, token, newPassword string) error {
	cl, err := u.signer.Parse(token, tokens.PurposeReset)
	if err != nil {
		return ErrInvalidToken
	}
	rec, err := u.users.GetByID(ctx, cl.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if cl.Fingerprint != tokens.Fingerprint(rec.PasswordHash) {
		return ErrInvalidToken
	}
	hash, err := u.hash(newPassword)
	if err != nil {
		return err
	}

	return u.inTx(ctx, func(ctx context.Context) error {
		if err := u.users.UpdatePassword(ctx, rec.ID, hash); err != nil {
			return err
		}
		rec.PasswordHash = hash
		return u.notifier.NotifyPasswordResetComplete(ctx, rec)
	})
}

func (u *Usecase) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	release := func(bool) {}
	if u.cfg.Hold != nil {
		ctx, release = u.cfg.Hold.Hold(ctx)
	}
	err := u.tx.WithTx(ctx, fn)
	release(err == nil)
	return err
}

// ParseAccess returns the user id of a valid access token.
func (u *Usecase) ParseAccess(token string) (string, error) {
	cl, err := u.signer.Parse(token, tokens.PurposeAccess)
	if err != nil {
		return "", ErrInvalidToken
	}
	return cl.Subject, nil
}

func (u *Usecase) lookup(ctx context.Context, email string) (*user.User, error) {
	addr, err := parseEmail(email)
	if err != nil {
		return nil, err
	}
	rec, err := u.users.GetByEmail(ctx, addr)
	if errors.Is(err, user.ErrNotFound) {
		u.log.Debug("link requested for unknown email")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (u *Usecase) hash(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", ErrWeakPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), u.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func parseEmail(s string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	if err != nil || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	return user.NormalizeEmail(addr.Address), nil
}

func withToken(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("link base url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
