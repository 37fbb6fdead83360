package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/zhouzirui/lingualink/backend/internal/model/user"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrUnauthenticated    = errors.New("not authenticated")
)

const (
	// DefaultSessionTTL is how long an issued token stays valid.
	DefaultSessionTTL = 24 * time.Hour
	// DefaultMaxTrackedLogins caps the per-email login limiters kept in memory.
	DefaultMaxTrackedLogins = 4096

	// A limiter idle this long has refilled its burst and can be dropped.
	limiterIdle = time.Minute
	// Expired sessions are swept at most this often.
	sessionSweepInterval = time.Minute
)

// Config tunes the identity provider.
type Config struct {
	// LoginAttemptsPerMinute bounds login attempts per email address.
	LoginAttemptsPerMinute int
	// MaxTrackedLogins caps the number of emails with a live limiter.
	MaxTrackedLogins int
	// SessionTTL bounds the lifetime of a token. Zero means DefaultSessionTTL.
	SessionTTL time.Duration
	// Iterations overrides the PBKDF2 work factor. Zero means DefaultPBKDF2Iterations.
	Iterations int
}

// SignUpRequest carries the fields of the registration form.
type SignUpRequest struct {
	Name     string `json:"name"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is an issued bearer token.
type Session struct {
	Token     string    `json:"token"`
	User      user.User `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type session struct {
	user      user.User
	expiresAt time.Time
}

// Service registers users, signs them in and resolves bearer tokens. Tokens
// live in memory only; a restart signs everybody out.
type Service struct {
	store  *Store
	hasher hasher
	now    func() time.Time

	attemptsPerMinute int
	maxTracked        int
	limiterMu         sync.Mutex
	limiters          map[string]*limiterEntry
	lastLimiterSweep  time.Time

	sessionTTL       time.Duration
	mu               sync.RWMutex
	sessions         map[string]session
	lastSessionSweep time.Time
}

// NewService builds the identity provider over store.
func NewService(store *Store, cfg Config) *Service {
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = DefaultPBKDF2Iterations
	}
	attempts := cfg.LoginAttemptsPerMinute
	if attempts <= 0 {
		attempts = 10
	}
	maxTracked := cfg.MaxTrackedLogins
	if maxTracked <= 0 {
		maxTracked = DefaultMaxTrackedLogins
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &Service{
		store:             store,
		hasher:            hasher{iterations: iterations},
		now:               func() time.Time { return time.Now().UTC() },
		attemptsPerMinute: attempts,
		maxTracked:        maxTracked,
		limiters:          make(map[string]*limiterEntry),
		sessionTTL:        ttl,
		sessions:          make(map[string]session),
	}
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (Session, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.Email = normalizeEmail(req.Email)

	if err := validateSignUp(req); err != nil {
		return Session{}, err
	}

	key, salt, err := s.hasher.hash(req.Password)
	if err != nil {
		return Session{}, err
	}

	acc := account{
		User: user.User{
			ID:          uuid.NewString(),
			DisplayName: req.Name,
			Email:       req.Email,
			Mobile:      req.Mobile,
			CreatedAt:   s.now(),
		},
		PasswordHash: key,
		Salt:         salt,
	}
	if err := s.store.create(ctx, acc); err != nil {
		return Session{}, err
	}

	slog.InfoContext(ctx, "user signed up", "component", "auth", "user", acc.ID)
	return s.issue(acc.User), nil
}

// Login verifies credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return Session{}, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if password == "" {
		return Session{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	now := s.now()
	if !s.limiterFor(email, now).AllowN(now, 1) {
		slog.WarnContext(ctx, "login throttled", "component", "auth", "email", email)
		return Session{}, ErrTooManyAttempts
	}

	acc, err := s.store.findByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	if !s.hasher.verify(password, acc.Salt, acc.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}

	slog.InfoContext(ctx, "user logged in", "component", "auth", "user", acc.ID)
	return s.issue(acc.User), nil
}

// Authenticate resolves a bearer token to its user. Expired tokens are
// revoked on sight.
func (s *Service) Authenticate(_ context.Context, token string) (user.User, error) {
	if token == "" {
		return user.User{}, ErrUnauthenticated
	}

	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return user.User{}, ErrUnauthenticated
	}
	if !s.now().Before(sess.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return user.User{}, ErrUnauthenticated
	}
	return sess.user, nil
}

// Logout revokes token and returns the user it belonged to.
func (s *Service) Logout(ctx context.Context, token string) (user.User, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[token]
	delete(s.sessions, token)
	s.mu.Unlock()

	u := sess.user
	if ok {
		slog.InfoContext(ctx, "user logged out", "component", "auth", "user", u.ID)
	}
	return u, ok
}

func (s *Service) issue(u user.User) Session {
	token := uuid.NewString()
	now := s.now()
	expiresAt := now.Add(s.sessionTTL)

	s.mu.Lock()
	if now.Sub(s.lastSessionSweep) >= sessionSweepInterval {
		for t, sess := range s.sessions {
			if !now.Before(sess.expiresAt) {
				delete(s.sessions, t)
			}
		}
		s.lastSessionSweep = now
	}
	s.sessions[token] = session{user: u, expiresAt: expiresAt}
	s.mu.Unlock()

	return Session{Token: token, User: u, ExpiresAt: expiresAt}
}

// limiterFor returns the limiter of email, creating it if needed. Idle
// limiters are dropped and, at capacity, the least recently used one makes room.
func (s *Service) limiterFor(email string, now time.Time) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()

	if now.Sub(s.lastLimiterSweep) >= limiterIdle {
		s.sweepLimitersLocked(now)
	}

	entry, ok := s.limiters[email]
	if !ok {
		if len(s.limiters) >= s.maxTracked {
			s.evictOldestLimiterLocked()
		}
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.attemptsPerMinute)), s.attemptsPerMinute),
		}
		s.limiters[email] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (s *Service) sweepLimitersLocked(now time.Time) {
	removed := 0
	for email, entry := range s.limiters {
		if now.Sub(entry.lastSeen) >= limiterIdle {
			delete(s.limiters, email)
			removed++
		}
	}
	s.lastLimiterSweep = now
	if removed > 0 {
		slog.Debug("cleaned up idle login limiters", "component", "auth", "removed", removed, "remaining", len(s.limiters))
	}
}

func (s *Service) evictOldestLimiterLocked() {
	var (
		oldest string
		seen   time.Time
	)
	for email, entry := range s.limiters {
		if oldest == "" || entry.lastSeen.Before(seen) {
			oldest, seen = email, entry.lastSeen
		}
	}
	delete(s.limiters, oldest)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateSignUp(req SignUpRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(req.Mobile) < 10 {
		return fmt.Errorf("%w: mobile number must be at least 10 digits", ErrInvalidInput)
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if len(req.Password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}
	return nil
}
