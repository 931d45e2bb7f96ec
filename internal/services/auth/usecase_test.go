package auth

import (
	"context"
	"errors"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NordCoder/tifi/internal/domain/user"
	"github.com/NordCoder/tifi/internal/repository/sqlite"
	"github.com/NordCoder/tifi/internal/services/dispatcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type call struct {
	kind string
	user *user.User
	url  string
}

type fakeNotifier struct {
	calls []call
	err   error
	// spawn, when set, runs on NotifySignup and
	// NotifyPasswordResetComplete with the context the flow passed in.
	spawn func(ctx context.Context)
}

func (f *fakeNotifier) record(kind string, u *user.User, link string) error {
	f.calls = append(f.calls, call{kind: kind, user: u, url: link})
	return f.err
}

func (f *fakeNotifier) NotifySignup(ctx context.Context, u *user.User) error {
	if f.spawn != nil {
		f.spawn(ctx)
	}
	return f.record("signup", u, "")
}

func (f *fakeNotifier) NotifyMagicLink(_ context.Context, u *user.User, link string) error {
	return f.record("magic", u, link)
}

func (f *fakeNotifier) NotifyPasswordReset(_ context.Context, u *user.User, link string) error {
	return f.record("reset", u, link)
}

func (f *fakeNotifier) NotifyPasswordResetComplete(ctx context.Context, u *user.User) error {
	if f.spawn != nil {
		f.spawn(ctx)
	}
	return f.record("reset-done", u, "")
}

type fixture struct {
	uc    *Usecase
	users *sqlite.UserRepo
	n     *fakeNotifier
}

func setup(t *testing.T, opts ...func(*Config)) fixture {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := sqlite.NewUserRepo(db)
	n := &fakeNotifier{}
	cfg := Config{
		Secret:           []byte("test-secret"),
		MagicLinkURL:     "https://tifi.tv/auth/magic",
		ResetPasswordURL: "https://tifi.tv/auth/reset?lang=en",
		BcryptCost:       bcrypt.MinCost,
	}
	for _, o := range opts {
		o(&cfg)
	}
	uc := NewUseCase(users, sqlite.NewTransactor(db, zap.NewNop()), n, cfg, zap.NewNop())
	return fixture{uc: uc, users: users, n: n}
}

func tokenFrom(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	tok := u.Query().Get("token")
	require.NotEmpty(t, tok)
	return tok
}

func TestSignUp(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, access, err := f.uc.SignUp(ctx, SignUpInput{Email: " Ada@X.com ", Password: "correct-horse", FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada@x.com", u.Email)
	assert.Len(t, u.ID, 32)

	uid, err := f.uc.ParseAccess(access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, uid)

	require.Len(t, f.n.calls, 1)
	assert.Equal(t, "signup", f.n.calls[0].kind)
	assert.Equal(t, u.ID, f.n.calls[0].user.ID)

	_, _, err = f.uc.SignUp(ctx, SignUpInput{Email: "ada@x.com", Password: "another-pass"})
	assert.ErrorIs(t, err, user.ErrEmailTaken)
}

func TestSignUp_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, err := f.uc.SignUp(ctx, SignUpInput{Email: "nope", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, _, err = f.uc.SignUp(ctx, SignUpInput{Email: "a@x.com", Password: "short"})
	assert.ErrorIs(t, err, ErrWeakPassword)
	assert.Empty(t, f.n.calls)
}

func TestSignUp_RollsBackWhenLedgerFails(t *testing.T) {
	f := setup(t)
	f.n.err = errors.New("ledger down")

	_, _, err := f.uc.SignUp(context.Background(), SignUpInput{Email: "a@x.com", Password: "correct-horse"})
	require.Error(t, err)

	_, err = f.users.GetByEmail(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func startedDispatcher(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()
	d := dispatcher.New(zap.NewNop(), dispatcher.Options{Workers: 1, QueueSize: 4})
	d.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.Shutdown(ctx)
	})
	return d
}

func TestSignUp_RollbackDropsScheduledEvents(t *testing.T) {
	d := startedDispatcher(t)
	f := setup(t, func(c *Config) { c.Hold = d })

	var published atomic.Int64
	f.n.spawn = func(ctx context.Context) {
		d.Go(ctx, "event:notification.recorded", func(context.Context) error {
			published.Add(1)
			return nil
		})
	}
	f.n.err = errors.New("ledger down")

	_, _, err := f.uc.SignUp(context.Background(), SignUpInput{Email: "a@x.com", Password: "correct-horse"})
	require.Error(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, published.Load())
}

func TestSignUp_CommitReleasesScheduledEvents(t *testing.T) {
	d := startedDispatcher(t)
	f := setup(t, func(c *Config) { c.Hold = d })

	var published atomic.Int64
	f.n.spawn = func(ctx context.Context) {
		d.Go(ctx, "event:notification.recorded", func(context.Context) error {
			published.Add(1)
			return nil
		})
	}

	_, _, err := f.uc.SignUp(context.Background(), SignUpInput{Email: "a@x.com", Password: "correct-horse"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return published.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestSignIn(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, _, err := f.uc.SignUp(ctx, SignUpInput{Email: "a@x.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, tok, err := f.uc.SignIn(ctx, "A@x.com", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	_, _, err = f.uc.SignIn(ctx, "a@x.com", "wrong-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.uc.SignIn(ctx, "ghost@x.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMagicLinkFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u, _, err := f.uc.SignUp(ctx, SignUpInput{Email: "a@x.com", Password: "correct-horse"})
	require.NoError(t, err)

	require.NoError(t, f.uc.RequestMagicLink(ctx, "a@x.com"))
	require.Len(t, f.n.calls, 2)
	assert.Equal(t, "magic", f.n.calls[1].kind)
	tok := tokenFrom(t, f.n.calls[1].url)

	got, access, err := f.uc.VerifyMagicLink(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	_, err = f.uc.ParseAccess(access)
	require.NoError(t, err)

	_, err = f.uc.ParseAccess(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "a magic link is not a session")

	_, _, err = f.uc.VerifyMagicLink(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequestLinks_UnknownEmailIsSilent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.uc.RequestMagicLink(ctx, "ghost@x.com"))
	require.NoError(t, f.uc.RequestPasswordReset(ctx, "ghost@x.com"))
	assert.Empty(t, f.n.calls)

	assert.ErrorIs(t, f.uc.RequestMagicLink(ctx, "not an email"), ErrInvalidEmail)
}

func TestPasswordResetFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, _, err := f.uc.SignUp(ctx, SignUpInput{Email: "a@x.com", Password: "correct-horse"})
	require.NoError(t, err)

	require.NoError(t, f.uc.RequestPasswordReset(ctx, "a@x.com"))
	link := f.n.calls[len(f.n.calls)-1].url
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "en", parsed.Query().Get("lang"), "existing query is kept")
	tok := tokenFrom(t, link)

	assert.ErrorIs(t, f.uc.ResetPassword(ctx, tok, "short"), ErrWeakPassword)
	require.NoError(t, f.uc.ResetPassword(ctx, tok, "battery-staple"))
	assert.Equal(t, "reset-done", f.n.calls[len(f.n.calls)-1].kind)

	_, _, err = f.uc.SignIn(ctx, "a@x.com", "battery-staple")
	require.NoError(t, err)

	assert.ErrorIs(t, f.uc.ResetPassword(ctx, tok, "third-password"), ErrInvalidToken, "link is single use")
}

func TestLinkExpiry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, _, err := f.uc.SignUp(ctx, SignUpInput{Email: "a@x.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.NoError(t, f.uc.RequestMagicLink(ctx, "a@x.com"))
	tok := tokenFrom(t, f.n.calls[len(f.n.calls)-1].url)

	later := NewUseCase(f.users, nil, f.n, Config{
		Secret: []byte("test-secret"),
		Now:    func() time.Time { return time.Now().Add(time.Hour) },
	}, zap.NewNop())
	_, _, err = later.VerifyMagicLink(ctx, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
