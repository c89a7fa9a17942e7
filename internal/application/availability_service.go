package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/planning-service/internal/interval"
	"github.com/example/planning-service/internal/scheduler"
)

// AvailabilityService maintains the availability ledger: non-overlapping
// windows per user and the composite availability check built on them.
type AvailabilityService struct {
	availabilities AvailabilityRepository
	users          UserDirectory
	tx             Transactor
	locks          *UserLocks
	cache          *availabilityCache
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewAvailabilityService constructs an availability service without a transactor.
func NewAvailabilityService(availabilities AvailabilityRepository, users UserDirectory, idGenerator func() string, now func() time.Time) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(availabilities, users, nil, nil, idGenerator, now, nil)
}

// NewAvailabilityServiceWithLogger constructs an availability service. locks
// must be shared with the task service so bookings of one user are serialized.
func NewAvailabilityServiceWithLogger(availabilities AvailabilityRepository, users UserDirectory, tx Transactor, locks *UserLocks, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AvailabilityService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if locks == nil {
		locks = NewUserLocks()
	}
	return &AvailabilityService{
		availabilities: availabilities,
		users:          users,
		tx:             tx,
		locks:          locks,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

// EnableCheckCache caches the results of Check for ttl.
func (s *AvailabilityService) EnableCheckCache(ttl time.Duration) {
	s.cache = newAvailabilityCache(ttl, 0, s.now)
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

func canManageAvailabilityOf(principal Principal, userID string) bool {
	return principal.UserID == userID || principal.Can(CapabilityManageAvailability)
}

// Create records a new window for a user. It fails when the user does not
// exist, the period is inverted, or the window overlaps another window of the user.
func (s *AvailabilityService) Create(ctx context.Context, params CreateAvailabilityParams) (availability Availability, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if s.availabilities == nil || s.users == nil {
		err = fmt.Errorf("availability repositories not configured")
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "Create",
		"principal_id", params.Principal.UserID,
		"user_id", input.UserID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create availability", "availability created", "availability_id", availability.ID)
	}()

	if strings.TrimSpace(input.UserID) == "" {
		vErr := &ValidationError{}
		vErr.add("user_id", "user id is required")
		err = vErr
		return
	}
	if !canManageAvailabilityOf(params.Principal, input.UserID) {
		err = ErrForbidden
		return
	}

	unlock := s.locks.Lock(input.UserID)
	defer unlock()

	err = withinTx(ctx, s.tx, func(ctx context.Context) error {
		if _, err := s.users.GetUser(ctx, input.UserID); err != nil {
			return mapRepoError(err)
		}
		if !input.Period.IsValid() {
			return ErrInvalidInterval
		}
		if err := s.ensureNoOverlap(ctx, input.UserID, input.Period, ""); err != nil {
			return err
		}

		now := s.now()
		record := Availability{
			ID:        s.idGenerator(),
			UserID:    input.UserID,
			Period:    input.Period,
			Available: input.Available,
			Note:      strings.TrimSpace(input.Note),
			CreatedAt: now,
			UpdatedAt: now,
		}
		created, err := s.availabilities.CreateAvailability(ctx, record)
		if err != nil {
			return mapRepoError(err)
		}
		availability = created
		return nil
	})
	if err != nil {
		availability = Availability{}
		return
	}

	s.cache.InvalidateUser(input.UserID)
	return
}

// Update applies the present fields of the patch, then re-validates the
// period and the overlap rule against the user's other windows.
func (s *AvailabilityService) Update(ctx context.Context, params UpdateAvailabilityParams) (availability Availability, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if s.availabilities == nil {
		err = fmt.Errorf("availability repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Update",
		"principal_id", params.Principal.UserID,
		"availability_id", params.AvailabilityID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update availability", "availability updated")
	}()

	var existing Availability
	existing, err = s.availabilities.GetAvailability(ctx, params.AvailabilityID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !canManageAvailabilityOf(params.Principal, existing.UserID) {
		err = ErrForbidden
		return
	}

	unlock := s.locks.Lock(existing.UserID)
	defer unlock()

	err = withinTx(ctx, s.tx, func(ctx context.Context) error {
		current, err := s.availabilities.GetAvailability(ctx, params.AvailabilityID)
		if err != nil {
			return mapRepoError(err)
		}

		patched := applyAvailabilityPatch(current, params.Patch)
		if !patched.Period.IsValid() {
			return ErrInvalidInterval
		}
		if s.users != nil {
			if _, err := s.users.GetUser(ctx, patched.UserID); err != nil {
				return mapRepoError(err)
			}
		}
		if err := s.ensureNoOverlap(ctx, patched.UserID, patched.Period, patched.ID); err != nil {
			return err
		}

		patched.UpdatedAt = s.now()
		updated, err := s.availabilities.UpdateAvailability(ctx, patched)
		if err != nil {
			return mapRepoError(err)
		}
		availability = updated
		return nil
	})
	if err != nil {
		availability = Availability{}
		return
	}

	s.cache.InvalidateUser(existing.UserID)
	return
}

func applyAvailabilityPatch(current Availability, patch AvailabilityPatch) Availability {
	if start, ok := patch.Start.Get(); ok {
		current.Period.Start = start
	}
	if end, ok := patch.End.Get(); ok {
		current.Period.End = end
	}
	if available, ok := patch.Available.Get(); ok {
		current.Available = available
	}
	if note, ok := patch.Note.Get(); ok {
		current.Note = strings.TrimSpace(note)
	}
	return current
}

// Delete removes a window. Tasks and plannings of the user are left untouched.
func (s *AvailabilityService) Delete(ctx context.Context, principal Principal, availabilityID string) (err error) {
	if s == nil {
		return fmt.Errorf("AvailabilityService is nil")
	}
	if s.availabilities == nil {
		return fmt.Errorf("availability repository not configured")
	}

	logger := s.loggerWith(ctx, "Delete",
		"principal_id", principal.UserID,
		"availability_id", availabilityID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete availability", "availability deleted")
	}()

	existing, err := s.availabilities.GetAvailability(ctx, availabilityID)
	if err != nil {
		return mapRepoError(err)
	}
	if !canManageAvailabilityOf(principal, existing.UserID) {
		return ErrForbidden
	}

	unlock := s.locks.Lock(existing.UserID)
	defer unlock()

	if err = s.availabilities.DeleteAvailability(ctx, availabilityID); err != nil {
		return mapRepoError(err)
	}
	s.cache.InvalidateUser(existing.UserID)
	return nil
}

// Get returns a single window.
func (s *AvailabilityService) Get(ctx context.Context, availabilityID string) (Availability, error) {
	if s == nil || s.availabilities == nil {
		return Availability{}, fmt.Errorf("availability repository not configured")
	}
	availability, err := s.availabilities.GetAvailability(ctx, availabilityID)
	if err != nil {
		return Availability{}, mapRepoError(err)
	}
	return availability, nil
}

// List returns a page of windows, optionally narrowed to a user and to
// windows overlapping a period.
func (s *AvailabilityService) List(ctx context.Context, params ListAvailabilitiesParams) (Page[Availability], error) {
	if s == nil || s.availabilities == nil {
		return Page[Availability]{}, fmt.Errorf("availability repository not configured")
	}
	if params.Period != nil && !params.Period.IsValid() {
		return Page[Availability]{}, ErrInvalidInterval
	}
	items, err := s.availabilities.ListAvailabilities(ctx, AvailabilityFilter{UserID: params.UserID, Period: params.Period})
	if err != nil {
		return Page[Availability]{}, mapRepoError(err)
	}
	return Paginate(items, params.Page, params.PageSize), nil
}

// IsAvailable reports whether the user is available over the whole period.
// Any unavailable window overlapping the period vetoes it; otherwise a single
// available window must contain it. The result is never cached.
func (s *AvailabilityService) IsAvailable(ctx context.Context, userID string, period interval.Interval) (bool, error) {
	resolution, err := s.resolve(ctx, userID, period)
	if err != nil {
		return false, err
	}
	return resolution.Available, nil
}

// Check explains the availability of an existing user over the period. Results
// are served from the check cache when it is enabled.
func (s *AvailabilityService) Check(ctx context.Context, userID string, period interval.Interval) (check AvailabilityCheck, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if !period.IsValid() {
		err = ErrInvalidInterval
		return
	}
	if cached, ok := s.cache.Get(userID, period); ok {
		return cached, nil
	}
	generation := s.cache.Generation(userID)
	if s.users != nil {
		if _, err = s.users.GetUser(ctx, userID); err != nil {
			err = mapRepoError(err)
			return
		}
	}

	resolution, err := s.resolve(ctx, userID, period)
	if err != nil {
		return
	}

	check = AvailabilityCheck{UserID: userID, Period: period, Available: resolution.Available}
	for _, w := range resolution.VetoedBy {
		check.VetoedBy = append(check.VetoedBy, w.ID)
	}
	if resolution.CoveredBy != nil {
		check.CoveredBy = resolution.CoveredBy.ID
	}
	s.cache.Store(check, generation)
	return check, nil
}

func (s *AvailabilityService) resolve(ctx context.Context, userID string, period interval.Interval) (scheduler.Resolution, error) {
	if s == nil || s.availabilities == nil {
		return scheduler.Resolution{}, fmt.Errorf("availability repository not configured")
	}
	if !period.IsValid() {
		return scheduler.Resolution{}, ErrInvalidInterval
	}
	windows, err := s.userWindows(ctx, userID, period)
	if err != nil {
		return scheduler.Resolution{}, err
	}
	return scheduler.ResolveAvailability(windows, period), nil
}

func (s *AvailabilityService) ensureNoOverlap(ctx context.Context, userID string, period interval.Interval, excludeID string) error {
	windows, err := s.userWindows(ctx, userID, period)
	if err != nil {
		return err
	}
	if overlapping := scheduler.OverlappingWindows(windows, period, excludeID); len(overlapping) > 0 {
		return fmt.Errorf("%w: %s", ErrOverlapConflict, overlapping[0].Period)
	}
	return nil
}

// userWindows loads the windows of userID overlapping period.
func (s *AvailabilityService) userWindows(ctx context.Context, userID string, period interval.Interval) ([]scheduler.Window, error) {
	records, err := s.availabilities.ListAvailabilities(ctx, AvailabilityFilter{UserID: userID, Period: &period})
	if err != nil {
		return nil, mapRepoError(err)
	}
	windows := make([]scheduler.Window, 0, len(records))
	for _, record := range records {
		if record.UserID != userID {
			continue
		}
		windows = append(windows, scheduler.Window{ID: record.ID, Available: record.Available, Period: record.Period})
	}
	return windows, nil
}
