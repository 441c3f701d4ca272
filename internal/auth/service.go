// Package auth signs users in with a password and authenticates requests by session-bound tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"bookshelf/internal/storage/users"
	"bookshelf/internal/types"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyAttempts    = errors.New("too many sign-in attempts, try again later")
	ErrUnauthorized       = errors.New("not signed in")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// Up to attemptsBurst sign-in attempts per email, refilled at attemptsBurst per attemptsInterval.
const (
	attemptsBurst    = 5
	attemptsInterval = time.Minute
)

type Options struct {
	Secret     []byte
	SessionTTL time.Duration
}

type Service struct {
	users users.Repository
	opts  Options
	l     *slog.Logger
	now   func() time.Time

	mu       sync.Mutex
	limiters map[string]*attempts
	swept    time.Time
}

type attempts struct {
	lim  *rate.Limiter
	last time.Time
}

func NewService(repo users.Repository, opts Options, l *slog.Logger) *Service {
	return &Service{
		users:    repo,
		opts:     opts,
		l:        l,
		now:      time.Now,
		limiters: make(map[string]*attempts),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// limiter returns the throttle of email. A limiter idle for attemptsInterval is full again, so it is dropped.
func (s *Service) limiter(email string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.swept) >= attemptsInterval {
		for k, a := range s.limiters {
			if now.Sub(a.last) >= attemptsInterval {
				delete(s.limiters, k)
			}
		}
		s.swept = now
	}

	a, ok := s.limiters[email]
	if !ok {
		a = &attempts{lim: rate.NewLimiter(rate.Every(attemptsInterval/attemptsBurst), attemptsBurst)}
		s.limiters[email] = a
	}
	a.last = now

	return a.lim
}

func (s *Service) forget(email string) {
	s.mu.Lock()
	delete(s.limiters, email)
	s.mu.Unlock()
}

// Register creates a user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, password string) (*types.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return s.users.Create(ctx, email, string(hash))
}

type SignedIn struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *types.User `json:"user"`
}

// SignIn checks the password and opens a session. Attempts are throttled per email address.
func (s *Service) SignIn(ctx context.Context, email, password string) (*SignedIn, error) {
	email = normalizeEmail(email)

	now := s.now()
	if !s.limiter(email, now).AllowN(now, 1) {
		s.l.WarnContext(ctx, "Throttled sign-in attempt for "+email)
		return nil, ErrTooManyAttempts
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.l.InfoContext(ctx, "Failed sign-in attempt for "+email)
		return nil, ErrInvalidCredentials
	}

	s.forget(email)

	sess, err := s.users.CreateSession(ctx, u.Id, now.Add(s.opts.SessionTTL))
	if err != nil {
		return nil, err
	}

	token, err := sign(s.opts.Secret, Principal{UserId: u.Id, SessionId: sess.Id}, now, sess.ExpiresAt)
	if err != nil {
		return nil, err
	}

	s.l.InfoContext(ctx, "User "+u.Id.String()+" signed in")

	return &SignedIn{Token: token, ExpiresAt: sess.ExpiresAt, User: u}, nil
}

// Authenticate accepts a token only while its session is neither expired nor revoked.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	now := s.now()

	p, err := parse(s.opts.Secret, token, now)
	if err != nil {
		return Principal{}, err
	}

	sess, err := s.users.GetSession(ctx, p.SessionId)
	if err != nil {
		return Principal{}, err
	}

	if sess == nil || sess.UserId != p.UserId || !sess.Active(now) {
		return Principal{}, ErrUnauthorized
	}

	return p, nil
}

func (s *Service) Session(ctx context.Context, p Principal) (*types.Session, error) {
	sess, err := s.users.GetSession(ctx, p.SessionId)
	if err != nil {
		return nil, err
	}

	if sess == nil {
		return nil, ErrUnauthorized
	}

	return sess, nil
}

func (s *Service) SignOut(ctx context.Context, p Principal) error {
	if err := s.users.RevokeSession(ctx, p.SessionId, s.now()); err != nil {
		return err
	}

	s.l.InfoContext(ctx, "User "+p.UserId.String()+" signed out")
	return nil
}

func (s *Service) CurrentUser(ctx context.Context, p Principal) (*types.User, error) {
	u, err := s.users.GetById(ctx, p.UserId)
	if err != nil {
		return nil, err
	}

	if u == nil {
		return nil, ErrUnauthorized
	}

	return u, nil
}
