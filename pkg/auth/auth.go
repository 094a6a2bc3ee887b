// Package auth registers users, issues and revokes JWTs, and guards fiber
// routes.
//
// Tokens are HS256 JWTs carrying the user id and email. Every issued token
// is also recorded (by hash) as a session row so logout can revoke it
// before it expires.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/teslashibe/go-formcoach/pkg/store"
)

// DefaultTTL is how long issued tokens stay valid.
const DefaultTTL = 24 * time.Hour

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// ValidationError is a problem with user input. Its message is shown to
// clients as is.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Input errors.
var (
	ErrMissingCredentials = &ValidationError{"Email and password are required"}
	ErrInvalidEmail       = &ValidationError{"Please enter a valid email address"}
	ErrShortPassword      = &ValidationError{fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength)}
	ErrPasswordMismatch   = &ValidationError{"Passwords do not match"}
)

// Authentication errors.
var (
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrInvalidToken       = errors.New("Token is invalid or expired")
	ErrSessionRevoked     = errors.New("Session has been logged out")
	ErrUserNotFound       = errors.New("User not found")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks the address shape.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword checks password strength.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrShortPassword
	}
	return nil
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TokenHash is the form in which tokens are stored.
func TokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Claims is the JWT payload.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Service implements registration, login and token checks.
type Service struct {
	store  *store.Store
	secret []byte
	ttl    time.Duration
	cost   int
	clock  func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTTL sets the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithBcryptCost sets the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Service signing with secret.
func NewService(st *store.Store, secret []byte, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty signing secret")
	}
	s := &Service{
		store:  st,
		secret: secret,
		ttl:    DefaultTTL,
		cost:   bcrypt.DefaultCost,
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "auth")
	return s, nil
}

// Register creates an account and logs it in.
func (s *Service) Register(ctx context.Context, email, password, confirm string) (*store.User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", ErrMissingCredentials
	}
	if err := ValidateEmail(email); err != nil {
		return nil, "", err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, "", err
	}
	if password != confirm {
		return nil, "", ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	u, err := s.store.CreateUser(ctx, email, string(hash))
	if err != nil {
		return nil, "", err
	}

	token, err := s.Issue(ctx, u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*store.User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", ErrMissingCredentials
	}

	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.logger.Info("login rejected", "user_id", u.ID)
		return nil, "", ErrInvalidCredentials
	}

	now := s.clock()
	if err := s.store.TouchLogin(ctx, u.ID, now); err != nil {
		return nil, "", err
	}
	u.LastLogin = &now

	token, err := s.Issue(ctx, u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Issue signs a token for u and records its session.
func (s *Service) Issue(ctx context.Context, u *store.User) (string, error) {
	now := s.clock()
	expires := now.Add(s.ttl)
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	if err := s.store.CreateSession(ctx, u.ID, TokenHash(token), expires); err != nil {
		return "", fmt.Errorf("record session: %w", err)
	}
	return token, nil
}

// Verify checks a token's signature and expiry.
func (s *Service) Verify(token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		s.logger.Debug("token rejected", "error", err)
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// Authenticate verifies token, checks that its session is still active and
// loads the user.
func (s *Service) Authenticate(ctx context.Context, token string) (*store.User, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return nil, err
	}

	active, err := s.store.SessionActive(ctx, TokenHash(token), s.clock())
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrSessionRevoked
	}

	u, err := s.store.UserByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// Logout revokes the session of token.
func (s *Service) Logout(ctx context.Context, token string) error {
	_, err := s.store.DeactivateSession(ctx, TokenHash(token))
	return err
}

// Profile returns the user with id.
func (s *Service) Profile(ctx context.Context, id uint) (*store.User, error) {
	u, err := s.store.UserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}
