package service

import (
	"authgate/internal/common"
	"authgate/internal/common/security"
	"authgate/internal/domain/model"
	"authgate/internal/domain/repository"
	"authgate/internal/platform/metrics"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TokenIssuer signs identity tokens for a subject.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

type AuthService struct {
	userRepo repository.UserRepository
	hasher   security.PasswordHasher
	tokens   TokenIssuer
	throttle LoginThrottle
	audit    AuditPublisher
	metrics  *metrics.AuthMetrics
	log      *slog.Logger

	// dummyHash is verified when the username is unknown so that both
	// failure paths of Login pay the same hashing cost.
	dummyHash string
}

type AuthOption func(*AuthService)

func WithLoginThrottle(t LoginThrottle) AuthOption {
	return func(s *AuthService) { s.throttle = t }
}

func WithAuditPublisher(p AuditPublisher) AuthOption {
	return func(s *AuthService) { s.audit = p }
}

func WithAuthMetrics(m *metrics.AuthMetrics) AuthOption {
	return func(s *AuthService) { s.metrics = m }
}

func WithAuthLogger(l *slog.Logger) AuthOption {
	return func(s *AuthService) { s.log = l }
}

func NewAuthService(userRepo repository.UserRepository, hasher security.PasswordHasher, tokens TokenIssuer, opts ...AuthOption) (*AuthService, error) {
	seed := make([]byte, 16)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("dummy password seed: %w", err)
	}
	dummyHash, err := hasher.Hash(hex.EncodeToString(seed))
	if err != nil {
		return nil, fmt.Errorf("dummy password hash: %w", err)
	}

	s := &AuthService{
		userRepo:  userRepo,
		hasher:    hasher,
		tokens:    tokens,
		throttle:  NoopLoginThrottle{},
		audit:     NoopAuditPublisher{},
		metrics:   metrics.NewAuthMetrics(prometheus.NewRegistry()),
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		dummyHash: dummyHash,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type RegisterRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RemoteAddr string `json:"-"`
}

type RegisterResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RemoteAddr string `json:"-"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// ThrottledError is returned by Login while a username is locked out.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many failed logins, retry after %s", e.RetryAfter)
}

func (e *ThrottledError) Unwrap() error {
	return common.ErrTooManyRequests
}

// Register creates a user with the baseline role. No token is issued.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, common.ErrMissingField
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		s.metrics.Registrations.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		s.metrics.Registrations.WithLabelValues(metrics.ResultConflict).Inc()
		return nil, common.ErrDuplicateUser
	}

	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		if !errors.Is(err, common.ErrBadRequest) {
			s.metrics.Registrations.WithLabelValues(metrics.ResultError).Inc()
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Save(ctx, &model.User{
		Username:       req.Username,
		HashedPassword: hashedPassword,
		Roles:          []string{model.RoleUser},
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateUser) {
			// Lost a race with a concurrent registration.
			s.metrics.Registrations.WithLabelValues(metrics.ResultConflict).Inc()
			return nil, common.ErrDuplicateUser
		}
		s.metrics.Registrations.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.Registrations.WithLabelValues(metrics.ResultSuccess).Inc()
	s.publish(ctx, model.AuthEventRegistered, user.Username, req.RemoteAddr)
	s.log.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return &RegisterResponse{ID: user.ID, Username: user.Username}, nil
}

// Login verifies the password and returns a bearer token. Unknown
// usernames and wrong passwords fail with the same error.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, common.ErrMissingField
	}

	allowed, retryAfter, err := s.throttle.Allowed(ctx, req.Username)
	if err != nil {
		s.log.WarnContext(ctx, "login throttle unavailable", "error", err)
	} else if !allowed {
		s.metrics.Logins.WithLabelValues(metrics.ResultThrottled).Inc()
		s.publish(ctx, model.AuthEventLoginThrottled, req.Username, req.RemoteAddr)
		return nil, &ThrottledError{RetryAfter: retryAfter}
	}

	targetHash := s.dummyHash
	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	switch {
	case err == nil:
		targetHash = user.HashedPassword
	case errors.Is(err, common.ErrNotFound):
		user = nil
	default:
		s.metrics.Logins.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	valid := s.hasher.Verify(req.Password, targetHash)
	if user == nil || !valid {
		s.recordLoginFailure(ctx, req)
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		s.metrics.Logins.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.throttle.Reset(ctx, user.Username); err != nil {
		s.log.WarnContext(ctx, "failed to reset login throttle", "error", err)
	}
	s.metrics.Logins.WithLabelValues(metrics.ResultSuccess).Inc()
	s.publish(ctx, model.AuthEventLoginSucceeded, user.Username, req.RemoteAddr)
	return &LoginResponse{Token: token}, nil
}

func (s *AuthService) recordLoginFailure(ctx context.Context, req LoginRequest) {
	if err := s.throttle.RecordFailure(ctx, req.Username); err != nil {
		s.log.WarnContext(ctx, "failed to record login failure", "error", err)
	}
	s.metrics.Logins.WithLabelValues(metrics.ResultFailure).Inc()
	s.publish(ctx, model.AuthEventLoginFailed, req.Username, req.RemoteAddr)
}

func (s *AuthService) publish(ctx context.Context, typ model.AuthEventType, username, remoteAddr string) {
	event := NewAuthEvent(typ, username, remoteAddr)
	if err := s.audit.Publish(ctx, event); err != nil {
		s.log.ErrorContext(ctx, "failed to publish auth event", "type", typ, "error", err)
	}
}
