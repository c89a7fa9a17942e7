package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/planning-service/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Locks       *application.UserLocks
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults. Services built
// by one factory share its user locks.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(referenceTime),
		IDGenerator: NewIDGenerator("id"),
		Locks:       application.NewUserLocks(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(referenceTime)
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Locks == nil {
		factory.Locks = application.NewUserLocks()
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

func (f *ServiceFactory) defaults(idGen func() string, now func() time.Time) (func() string, func() time.Time) {
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return idGen, now
}

// UserServiceDeps captures dependencies for constructing a user service.
type UserServiceDeps struct {
	Users       application.UserRepository
	Hash        application.PasswordHasher
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// FastArgon2idParams keeps password hashing cheap in tests.
var FastArgon2idParams = application.Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

// NewUserService builds a user service using the supplied dependencies. A nil
// Hash uses argon2id with FastArgon2idParams.
func (f *ServiceFactory) NewUserService(deps UserServiceDeps) *application.UserService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	hash := deps.Hash
	if hash == nil {
		hash = application.NewPasswordHasher(FastArgon2idParams)
	}
	return application.NewUserServiceWithLogger(deps.Users, hash, idGen, now, deps.Logger)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialStore
	PasswordVerify application.PasswordVerifier
	Secret         []byte
	TokenTTL       time.Duration
	IDGenerator    func() string
	Now            func() time.Time
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies.
// Secret defaults to a fixed 32 byte key and TokenTTL to one hour.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	secret := deps.Secret
	if len(secret) == 0 {
		secret = []byte("0123456789abcdef0123456789abcdef")
	}
	ttl := deps.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return application.NewAuthServiceWithLogger(deps.Credentials, deps.PasswordVerify, secret, ttl, idGen, now, deps.Logger)
}

// ProjectServiceDeps captures dependencies for constructing a project service.
type ProjectServiceDeps struct {
	Projects    application.ProjectRepository
	Tx          application.Transactor
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewProjectService builds a project service using the supplied dependencies.
func (f *ServiceFactory) NewProjectService(deps ProjectServiceDeps) *application.ProjectService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewProjectServiceWithLogger(deps.Projects, deps.Tx, idGen, now, deps.Logger)
}

// AvailabilityServiceDeps captures dependencies for constructing an availability service.
type AvailabilityServiceDeps struct {
	Availabilities application.AvailabilityRepository
	Users          application.UserDirectory
	Tx             application.Transactor
	IDGenerator    func() string
	Now            func() time.Time
	Logger         *slog.Logger
}

// NewAvailabilityService builds an availability service sharing the factory locks.
func (f *ServiceFactory) NewAvailabilityService(deps AvailabilityServiceDeps) *application.AvailabilityService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewAvailabilityServiceWithLogger(deps.Availabilities, deps.Users, deps.Tx, f.Locks, idGen, now, deps.Logger)
}

// TaskServiceDeps captures dependencies for constructing a task service.
type TaskServiceDeps struct {
	Tasks        application.TaskRepository
	Projects     application.ProjectDirectory
	Users        application.UserDirectory
	Availability application.AvailabilityChecker
	Tx           application.Transactor
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewTaskService builds a task service sharing the factory locks.
func (f *ServiceFactory) NewTaskService(deps TaskServiceDeps) *application.TaskService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewTaskServiceWithLogger(
		deps.Tasks,
		deps.Projects,
		deps.Users,
		deps.Availability,
		deps.Tx,
		f.Locks,
		idGen,
		now,
		deps.Logger,
	)
}

// PlanningServiceDeps captures dependencies for constructing a planning service.
type PlanningServiceDeps struct {
	Plannings   application.PlanningRepository
	Users       application.UserDirectory
	Projects    application.ProjectDirectory
	Tasks       application.TaskDirectory
	Tx          application.Transactor
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewPlanningService builds a planning service using the supplied dependencies.
func (f *ServiceFactory) NewPlanningService(deps PlanningServiceDeps) *application.PlanningService {
	idGen, now := f.defaults(deps.IDGenerator, deps.Now)
	return application.NewPlanningServiceWithLogger(
		deps.Plannings,
		deps.Users,
		deps.Projects,
		deps.Tasks,
		deps.Tx,
		idGen,
		now,
		deps.Logger,
	)
}
