// Package adminauth signs the back-office operator in and checks their
// session tokens.
package adminauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/kirinyoku/vastore/internal/metrics"
)

var (
	// ErrInvalidCredentials is the only failure a caller of Login sees, so
	// a locked, unknown or mistyped login are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotConfigured      = errors.New("admin login is not configured")
)

type Lockout interface {
	Locked(ctx context.Context, id string) (time.Duration, error)
	RegisterFailure(ctx context.Context, id string) (int64, time.Duration, error)
	Reset(ctx context.Context, id string) error
}

type Alerter interface {
	Alert(ctx context.Context, a LockoutAlert) error
}

type LockoutAlert struct {
	IP       string
	Email    string
	Attempts int64
	Lock     time.Duration
}

type Config struct {
	AdminEmail string
	// TOTPSecret enables the second factor when set.
	TOTPSecret string
	JWTSecret  string
	TokenTTL   time.Duration
}

type Service struct {
	cfg     Config
	lockout Lockout
	alerter Alerter
	log     *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(cfg Config, lockout Lockout, alerter Alerter, log *slog.Logger, opts ...Option) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	cfg.AdminEmail = strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if log == nil {
		log = slog.Default()
	}

	s := &Service{cfg: cfg, lockout: lockout, alerter: alerter, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login checks the allowlisted email and, when configured, the TOTP code.
//
// Parameters:
//   - ctx: request-scoped context.
//   - email: operator email, compared case-insensitively.
//   - code: current TOTP code; whitespace is ignored.
//   - ip: client address, part of the lockout identity.
//
// Returns:
//   - *Session: a signed session token on success.
//   - error: adminauth.ErrInvalidCredentials on any failed or locked attempt.
//   - error: adminauth.ErrNotConfigured if no admin email or signing key is set.
func (s *Service) Login(ctx context.Context, email, code, ip string) (*Session, error) {
	const op = "service.adminauth.Login"

	if s.cfg.AdminEmail == "" || s.cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%s:%w", op, ErrNotConfigured)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	id := lockoutID(ip, email)

	if s.lockout != nil {
		left, err := s.lockout.Locked(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if left > 0 {
			metrics.AdminLoginsTotal.WithLabelValues("locked").Inc()
			return nil, fmt.Errorf("%s:%w", op, ErrInvalidCredentials)
		}
	}

	if !s.check(email, code) {
		s.fail(ctx, ip, email, id)
		metrics.AdminLoginsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidCredentials)
	}

	if s.lockout != nil {
		if err := s.lockout.Reset(ctx, id); err != nil {
			s.log.WarnContext(ctx, "reset login failures", slog.Any("err", err))
		}
	}

	now := s.now()
	exp := now.Add(s.cfg.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	metrics.AdminLoginsTotal.WithLabelValues("ok").Inc()
	s.log.InfoContext(ctx, "admin signed in", slog.String("ip", ip))

	return &Session{Token: signed, ExpiresAt: exp}, nil
}

func (s *Service) check(email, code string) bool {
	if email != s.cfg.AdminEmail {
		return false
	}
	if s.cfg.TOTPSecret == "" {
		return true
	}

	code = strings.Join(strings.Fields(code), "")
	if len(code) < 6 {
		return false
	}

	ok, err := totp.ValidateCustom(code, s.cfg.TOTPSecret, s.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func (s *Service) fail(ctx context.Context, ip, email, id string) {
	if s.lockout == nil {
		return
	}

	n, lock, err := s.lockout.RegisterFailure(ctx, id)
	if err != nil {
		s.log.WarnContext(ctx, "record login failure", slog.Any("err", err))
		return
	}
	if lock <= 0 {
		return
	}

	s.log.WarnContext(ctx, "admin login locked",
		slog.String("ip", ip),
		slog.String("email", email),
		slog.Int64("attempts", n),
		slog.Duration("lock", lock),
	)
	if s.alerter != nil {
		if err := s.alerter.Alert(ctx, LockoutAlert{IP: ip, Email: email, Attempts: n, Lock: lock}); err != nil {
			s.log.WarnContext(ctx, "lockout alert failed", slog.Any("err", err))
		}
	}
}

// Verify checks a bearer token and returns the operator email it was issued
// to.
func (s *Service) Verify(token string) (string, error) {
	const op = "service.adminauth.Verify"

	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || s.cfg.JWTSecret == "" {
		return "", fmt.Errorf("%s:%w", op, ErrUnauthorized)
	}

	now := s.now()
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(now) {
		return "", fmt.Errorf("%s:%w", op, ErrUnauthorized)
	}
	if !strings.EqualFold(claims.Subject, s.cfg.AdminEmail) {
		return "", fmt.Errorf("%s:%w", op, ErrUnauthorized)
	}

	return claims.Subject, nil
}

func lockoutID(ip, email string) string {
	if ip == "" {
		ip = "unknown"
	}
	return ip + ":" + email
}
