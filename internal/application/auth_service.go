package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	// MinTokenSecretLength is the smallest accepted HMAC secret.
	MinTokenSecretLength = 32
	tokenIssuer          = "planner"
)

// CredentialStore exposes user credential lookup operations required by the auth service.
type CredentialStore interface {
	GetCredentialsByUsername(ctx context.Context, username string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// TokenClaims is the payload of an issued bearer token. The subject is the user id.
type TokenClaims struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// AuthService verifies credentials and issues and validates signed bearer tokens.
type AuthService struct {
	credentials    CredentialStore
	verifyPassword PasswordVerifier
	secret         []byte
	tokenTTL       time.Duration
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, secret []byte, tokenTTL time.Duration, now func() time.Time) *AuthService {
	return NewAuthServiceWithLogger(credentials, nil, secret, tokenTTL, nil, now, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, verify PasswordVerifier, secret []byte, tokenTTL time.Duration, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		verifyPassword: verify,
		secret:         append([]byte(nil), secret...),
		tokenTTL:       tokenTTL,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

func (s *AuthService) configured() error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.credentials == nil {
		return fmt.Errorf("credential store not configured")
	}
	if len(s.secret) < MinTokenSecretLength {
		return fmt.Errorf("token secret must be at least %d bytes", MinTokenSecretLength)
	}
	return nil
}

// Login validates credentials and issues a bearer token for the user.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result LoginResult, err error) {
	if err = s.configured(); err != nil {
		return
	}

	username := strings.TrimSpace(params.Username)
	logger := s.loggerWith(ctx, "Login", "username", username)
	defer func() {
		logOutcome(ctx, logger, err, "login failed", "login succeeded", "user_id", result.User.ID)
	}()

	if username == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	creds, err = s.credentials.GetCredentialsByUsername(ctx, username)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if err = s.verifyPassword(creds.PasswordHash, params.Password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	token, expiresAt, err := s.issue(creds.User)
	if err != nil {
		return
	}
	result = LoginResult{User: creds.User, Token: token, ExpiresAt: expiresAt}
	return
}

// IssueToken signs a token for an already authenticated user, as after registration.
func (s *AuthService) IssueToken(user User) (LoginResult, error) {
	if s == nil {
		return LoginResult{}, fmt.Errorf("AuthService is nil")
	}
	if len(s.secret) < MinTokenSecretLength {
		return LoginResult{}, fmt.Errorf("token secret must be at least %d bytes", MinTokenSecretLength)
	}
	token, expiresAt, err := s.issue(user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) issue(user User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := TokenClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.idGenerator(),
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies the signature and expiry of a bearer token and
// returns the principal of a user that still exists. The role is read from
// the store, so a role change applies to tokens issued earlier.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (principal Principal, err error) {
	if err = s.configured(); err != nil {
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateToken", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.DebugContext(ctx, "token rejected", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if trimmed == "" {
		err = ErrUnauthorized
		return
	}

	claims := &TokenClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if _, parseErr := parser.ParseWithClaims(trimmed, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}); parseErr != nil {
		err = fmt.Errorf("%w: %v", ErrUnauthorized, parseErr)
		return
	}
	if !claims.VerifyExpiresAt(s.now(), true) {
		err = fmt.Errorf("%w: token expired", ErrUnauthorized)
		return
	}
	if !claims.VerifyIssuer(tokenIssuer, true) || claims.Subject == "" {
		err = fmt.Errorf("%w: unexpected claims", ErrUnauthorized)
		return
	}

	user, lookupErr := s.credentials.GetUser(ctx, claims.Subject)
	if lookupErr != nil {
		if errors.Is(mapRepoError(lookupErr), ErrNotFound) {
			err = ErrUnauthorized
			return
		}
		err = lookupErr
		return
	}

	principal = Principal{UserID: user.ID, Role: user.Role}
	return
}
