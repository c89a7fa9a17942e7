package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const minPasswordLength = 6

// PasswordHasher derives the stored hash of a password.
type PasswordHasher func(password string) (string, error)

// UserService manages accounts: registration, profiles and the bootstrap administrator.
type UserService struct {
	users       UserRepository
	hash        PasswordHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, nil, idGenerator, now, nil)
}

// NewUserServiceWithLogger constructs a user service with a specified logger.
// A nil hasher uses argon2id with the default parameters.
func NewUserServiceWithLogger(users UserRepository, hash PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hash == nil {
		hash = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hash: hash, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

func (s *UserService) configured() error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}
	return nil
}

// Register creates an employee account. Username and email must be unused.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	if err = s.configured(); err != nil {
		return
	}

	username := strings.TrimSpace(params.Username)
	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Register", "username", username)
	defer func() {
		logOutcome(ctx, logger, err, "failed to register user", "user registered", "user_id", user.ID)
	}()

	vErr := validateAccount(username, email, params.Password)
	validateNames(vErr, params.FirstName, params.LastName, params.Department)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	user, err = s.createAccount(ctx, User{
		Username:   username,
		Email:      email,
		FirstName:  strings.TrimSpace(params.FirstName),
		LastName:   strings.TrimSpace(params.LastName),
		Department: strings.TrimSpace(params.Department),
		Role:       RoleEmployee,
	}, params.Password)
	return
}

// EnsureAdmin creates the administrator account unless the username is
// already taken. created reports whether a new account was stored.
func (s *UserService) EnsureAdmin(ctx context.Context, params CreateAdminParams) (user User, created bool, err error) {
	if err = s.configured(); err != nil {
		return
	}

	username := strings.TrimSpace(params.Username)
	logger := s.loggerWith(ctx, "EnsureAdmin", "username", username)
	defer func() {
		logOutcome(ctx, logger, err, "failed to ensure admin", "admin ensured", "user_id", user.ID, "created", created)
	}()

	existing, lookupErr := s.users.GetUserByUsername(ctx, username)
	switch {
	case lookupErr == nil:
		user = existing
		return
	case !errors.Is(mapRepoError(lookupErr), ErrNotFound):
		err = mapRepoError(lookupErr)
		return
	}

	email := normalizeEmail(params.Email)
	if email == "" {
		email = username + "@planning.local"
	}
	if vErr := validateAccount(username, email, params.Password); vErr.HasErrors() {
		err = vErr
		return
	}

	user, err = s.createAccount(ctx, User{
		Username:   username,
		Email:      email,
		FirstName:  "Admin",
		LastName:   "System",
		Department: "Administration",
		Role:       RoleAdmin,
	}, params.Password)
	created = err == nil
	return
}

func (s *UserService) createAccount(ctx context.Context, user User, password string) (User, error) {
	if err := s.ensureUnique(ctx, user.Username, user.Email, ""); err != nil {
		return User{}, err
	}

	hash, err := s.hash(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user.ID = s.idGenerator()
	user.CreatedAt = now
	user.UpdatedAt = now

	created, err := s.users.CreateUser(ctx, UserCredentials{User: user, PasswordHash: hash})
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return created, nil
}

// ensureUnique fails with ErrAlreadyExists when the username or email belongs
// to an account other than selfID.
func (s *UserService) ensureUnique(ctx context.Context, username, email, selfID string) error {
	if username != "" {
		existing, err := s.users.GetUserByUsername(ctx, username)
		if err == nil && existing.ID != selfID {
			return fmt.Errorf("%w: username %s", ErrAlreadyExists, username)
		}
		if err != nil && !errors.Is(mapRepoError(err), ErrNotFound) {
			return mapRepoError(err)
		}
	}
	if email != "" {
		existing, err := s.users.GetUserByEmail(ctx, email)
		if err == nil && existing.ID != selfID {
			return fmt.Errorf("%w: email %s", ErrAlreadyExists, email)
		}
		if err != nil && !errors.Is(mapRepoError(err), ErrNotFound) {
			return mapRepoError(err)
		}
	}
	return nil
}

// GetProfile returns the account of the acting user.
func (s *UserService) GetProfile(ctx context.Context, principal Principal) (User, error) {
	if err := s.configured(); err != nil {
		return User{}, err
	}
	if principal.UserID == "" {
		return User{}, ErrUnauthorized
	}
	user, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return user, nil
}

// UpdateProfile applies the present, non-empty fields to the acting user's
// account. A new password is re-hashed.
func (s *UserService) UpdateProfile(ctx context.Context, params UpdateProfileParams) (user User, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateProfile", "principal_id", params.Principal.UserID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update profile", "profile updated")
	}()

	var current User
	current, err = s.GetProfile(ctx, params.Principal)
	if err != nil {
		return
	}

	vErr := &ValidationError{}
	updated := current
	if email, ok := presentString(params.Email); ok {
		email = normalizeEmail(email)
		if _, parseErr := mail.ParseAddress(email); parseErr != nil {
			vErr.add("email", "email is invalid")
		}
		updated.Email = email
	}
	password, _ := params.Password.Get()
	changePassword := password != ""
	if changePassword && utf8.RuneCountInString(password) < minPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if firstName, ok := presentString(params.FirstName); ok {
		updated.FirstName = firstName
	}
	if lastName, ok := presentString(params.LastName); ok {
		updated.LastName = lastName
	}
	if department, ok := presentString(params.Department); ok {
		updated.Department = department
	}
	validateNames(vErr, updated.FirstName, updated.LastName, updated.Department)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if updated.Email != current.Email {
		if err = s.ensureUnique(ctx, "", updated.Email, current.ID); err != nil {
			return
		}
	}

	creds := UserCredentials{User: updated}
	if changePassword {
		if creds.PasswordHash, err = s.hash(password); err != nil {
			err = fmt.Errorf("hash password: %w", err)
			return
		}
	}
	creds.User.UpdatedAt = s.now()

	user, err = s.users.UpdateUser(ctx, creds)
	if err != nil {
		err = mapRepoError(err)
		user = User{}
	}
	return
}

// List returns a page of accounts ordered by username.
func (s *UserService) List(ctx context.Context, page, pageSize int) (Page[User], error) {
	if err := s.configured(); err != nil {
		return Page[User]{}, err
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return Page[User]{}, mapRepoError(err)
	}

	out := make([]User, len(users))
	copy(out, users)
	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Username, out[j].Username) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})
	return Paginate(out, page, pageSize), nil
}

// presentString reports a trimmed value only when it is set and non-empty.
func presentString(opt Optional[string]) (string, bool) {
	value, ok := opt.Get()
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateAccount(username, email, password string) *ValidationError {
	vErr := &ValidationError{}

	switch n := utf8.RuneCountInString(username); {
	case n == 0:
		vErr.add("username", "username is required")
	case n < 3 || n > 50:
		vErr.add("username", "username must be between 3 and 50 characters")
	}

	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil || utf8.RuneCountInString(email) > 100 {
		vErr.add("email", "email is invalid")
	}

	if utf8.RuneCountInString(password) < minPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return vErr
}

func validateNames(vErr *ValidationError, firstName, lastName, department string) {
	if utf8.RuneCountInString(firstName) > 50 {
		vErr.add("first_name", "first name must be at most 50 characters")
	}
	if utf8.RuneCountInString(lastName) > 50 {
		vErr.add("last_name", "last name must be at most 50 characters")
	}
	if utf8.RuneCountInString(department) > 100 {
		vErr.add("department", "department must be at most 100 characters")
	}
}
