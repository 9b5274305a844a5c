package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/access-api/internal/access"
	"github.com/jwalitptl/access-api/internal/model"
	"github.com/jwalitptl/access-api/internal/repository"
	"github.com/jwalitptl/access-api/internal/service/event"
	"github.com/jwalitptl/access-api/pkg/metrics"
)

var (
	// ErrUserHasHistory is returned by Delete when the user must be deactivated instead.
	ErrUserHasHistory = errors.New("user has transactional history and can only be deactivated")
	ErrUsernameTaken  = errors.New("username already exists")
)

type UserServicer interface {
	CreateUser(ctx context.Context, pgid string, user *model.User) error
	GetUser(ctx context.Context, pgid string, id uuid.UUID) (*model.User, error)
	UpdateUser(ctx context.Context, pgid string, id uuid.UUID, candidate *model.User) (*model.User, error)
	DeleteUser(ctx context.Context, pgid string, id uuid.UUID) error
	DeactivateUser(ctx context.Context, pgid string, id uuid.UUID) error
	ListUsers(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
	AssignOffice(ctx context.Context, pgid string, id uuid.UUID, officeID string) (*model.User, error)
	RemoveOffice(ctx context.Context, pgid string, id uuid.UUID, officeID string) (*model.User, error)
	SetHomeOffice(ctx context.Context, pgid string, id uuid.UUID, officeID string) (*model.User, error)
	AddSecurityGroup(ctx context.Context, pgid string, id uuid.UUID, code string) (*model.User, error)
	AddPermittedIP(ctx context.Context, pgid string, id uuid.UUID, entry string) (*model.User, error)
	SetLoginRestriction(ctx context.Context, pgid string, id uuid.UUID, restriction model.LoginRestriction) (*model.User, error)
	EffectivePermissions(ctx context.Context, pgid string, id uuid.UUID) (access.EffectivePermissions, error)
}

type Service struct {
	repo           repository.UserRepository
	offices        repository.OfficeRepository
	securityGroups repository.SecurityGroupRepository
	events         event.Emitter
	metrics        *metrics.Metrics
}

func NewService(
	repo repository.UserRepository,
	offices repository.OfficeRepository,
	securityGroups repository.SecurityGroupRepository,
	events event.Emitter,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:           repo,
		offices:        offices,
		securityGroups: securityGroups,
		events:         events,
		metrics:        m,
	}
}

// CreateUser validates and stores a new, active user in the tenant.
func (s *Service) CreateUser(ctx context.Context, pgid string, user *model.User) error {
	user.PGID = pgid
	user.Active = true
	normalizeOffices(user)
	if user.PatientAccessLevel == "" {
		user.PatientAccessLevel = model.PatientAccessAssignedOnly
	}

	if err := s.validate(ctx, user); err != nil {
		return err
	}

	if _, err := s.repo.GetByUsername(ctx, pgid, user.Username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to check username: %w", err)
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.emit(ctx, user, event.UserCreated)
	return nil
}

// GetUser hides users of other tenants behind repository.ErrNotFound.
func (s *Service) GetUser(ctx context.Context, pgid string, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.PGID != pgid {
		return nil, fmt.Errorf("failed to get user: user %w", repository.ErrNotFound)
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	if filters.OfficeID != "" {
		filters.OfficeID = access.NormalizeOfficeID(filters.OfficeID)
	}
	users, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUser replaces the editable fields of a user with candidate. Identity,
// tenant and the active flag are kept from the stored record.
func (s *Service) UpdateUser(ctx context.Context, pgid string, id uuid.UUID, candidate *model.User) (*model.User, error) {
	existing, err := s.GetUser(ctx, pgid, id)
	if err != nil {
		return nil, err
	}

	updated := candidate.Clone()
	updated.Base = existing.Base
	updated.PGID = existing.PGID
	updated.Active = existing.Active
	updated.LastLoginAt = existing.LastLoginAt
	if updated.PatientAccessLevel == "" {
		updated.PatientAccessLevel = existing.PatientAccessLevel
	}

	if updated.Username != existing.Username {
		other, err := s.repo.GetByUsername(ctx, pgid, updated.Username)
		if err == nil && other.ID != existing.ID {
			return nil, ErrUsernameTaken
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
	}

	return s.save(ctx, updated)
}

// DeleteUser refuses users with appointments or payments; those can only be deactivated.
func (s *Service) DeleteUser(ctx context.Context, pgid string, id uuid.UUID) error {
	user, err := s.GetUser(ctx, pgid, id)
	if err != nil {
		return err
	}

	hasHistory, err := s.repo.HasTransactionalHistory(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check user history: %w", err)
	}
	if hasHistory {
		return ErrUserHasHistory
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.emit(ctx, user, event.UserDeleted)
	return nil
}

// DeactivateUser blocks every future login without touching history.
func (s *Service) DeactivateUser(ctx context.Context, pgid string, id uuid.UUID) error {
	user, err := s.GetUser(ctx, pgid, id)
	if err != nil {
		return err
	}
	if !user.Active {
		return nil
	}

	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	user.Active = false
	s.emit(ctx, user, event.UserDeactivated)
	return nil
}

func (s *Service) AssignOffice(ctx context.Context, pgid string, id uuid.UUID, officeID string) (*model.User, error) {
	return s.changeOffices(ctx, pgid, id, func(a access.OfficeAssignment) (access.OfficeAssignment, error) {
		return a.Assign(officeID), nil
	})
}

// RemoveOffice fails with access.ErrRemoveHomeOffice when officeID is the home office.
func (s *Service) RemoveOffice(ctx context.Context, pgid string, id uuid.UUID, officeID string) (*model.User, error) {
	return s.changeOffices(ctx, pgid, id, func(a access.OfficeAssignment) (access.OfficeAssignment, error) {
		return a.Remove(officeID)
	})
}

// SetHomeOffice moves the home office, assigning the new one if needed.
func (s *Service) SetHomeOffice(ctx context.Context, pgid string, id uuid.UUID, officeID string) (*model.User, error) {
	return s.changeOffices(ctx, pgid, id, func(a access.OfficeAssignment) (access.OfficeAssignment, error) {
		return a.SetHome(officeID)
	})
}

func (s *Service) changeOffices(
	ctx context.Context,
	pgid string,
	id uuid.UUID,
	change func(access.OfficeAssignment) (access.OfficeAssignment, error),
) (*model.User, error) {
	user, err := s.GetUser(ctx, pgid, id)
	if err != nil {
		return nil, err
	}

	current, err := access.AssignmentOf(user)
	if err != nil {
		return nil, fmt.Errorf("stored office assignment is invalid: %w", err)
	}
	next, err := change(current)
	if err != nil {
		return nil, err
	}

	updated := user.Clone()
	next.ApplyTo(updated)
	return s.save(ctx, updated)
}

// AddSecurityGroup is idempotent: adding a group the user already has is a no-op.
// The code must be provisioned for the tenant.
func (s *Service) AddSecurityGroup(ctx context.Context, pgid string, id uuid.UUID, code string) (*model.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, access.ValidationErrors{{Field: "security_groups", Reason: access.ReasonRequired}}
	}

	user, err := s.GetUser(ctx, pgid, id)
	if err != nil {
		return nil, err
	}

	groups, err := s.securityGroups.List(ctx, pgid)
	if err != nil {
		return nil, fmt.Errorf("failed to list security groups: %w", err)
	}
	if !hasGroup(groups, code) {
		errs := access.ValidationErrors{{Field: "security_groups", Reason: access.ReasonUnknownSecurityGroup}}
		s.recordFailures(errs)
		return nil, errs
	}
	for _, g := range user.SecurityGroups {
		if g == code {
			return user, nil
		}
	}

	updated := user.Clone()
	updated.SecurityGroups = append(updated.SecurityGroups, code)
	return s.save(ctx, updated)
}

// AddPermittedIP rejects malformed entries here so they never reach the login gate.
func (s *Service) AddPermittedIP(ctx context.Context, pgid string, id uuid.UUID, entry string) (*model.User, error) {
	entry = strings.TrimSpace(entry)
	if _, err := access.ParsePermittedIP(entry); err != nil {
		errs := access.ValidationErrors{{Field: "permitted_ips", Reason: access.ReasonInvalidIP}}
		s.recordFailures(errs)
		return nil, errs
	}

	user, err := s.GetUser(ctx, pgid, id)
	if err != nil {
		return nil, err
	}
	for _, existing := range user.PermittedIPs {
		if existing == entry {
			return user, nil
		}
	}

	updated := user.Clone()
	updated.PermittedIPs = append(updated.PermittedIPs, entry)
	return s.save(ctx, updated)
}

// SetLoginRestriction replaces the weekly login window. Unrestricted clears it.
func (s *Service) SetLoginRestriction(ctx context.Context, pgid string, id uuid.UUID, restriction model.LoginRestriction) (*model.User, error) {
	user, err := s.GetUser(ctx, pgid, id)
	if err != nil {
		return nil, err
	}

	updated := user.Clone()
	updated.LoginRestriction = restriction
	return s.save(ctx, updated)
}

// EffectivePermissions resolves the user's groups against the tenant's capability table.
func (s *Service) EffectivePermissions(ctx context.Context, pgid string, id uuid.UUID) (access.EffectivePermissions, error) {
	user, err := s.GetUser(ctx, pgid, id)
	if err != nil {
		return access.EffectivePermissions{}, err
	}

	table := make(access.StaticCapabilityTable, len(user.SecurityGroups))
	for _, code := range user.SecurityGroups {
		caps, err := s.securityGroups.Capabilities(ctx, pgid, code)
		if err != nil {
			return access.EffectivePermissions{}, fmt.Errorf("failed to load capabilities for %s: %w", code, err)
		}
		table[code] = caps
	}
	return access.ResolvePermissions(user.Role, user.SecurityGroups, table), nil
}

func (s *Service) save(ctx context.Context, user *model.User) (*model.User, error) {
	normalizeOffices(user)
	if err := s.validate(ctx, user); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	s.emit(ctx, user, event.UserChanged)
	return user, nil
}

// validate runs the structural rules and the tenant office check together so
// every violation is reported in one response.
func (s *Service) validate(ctx context.Context, user *model.User) error {
	errs := access.ValidateUser(user)

	offices, err := s.offices.List(ctx, user.PGID)
	if err != nil {
		return fmt.Errorf("failed to load offices: %w", err)
	}
	errs = append(errs, access.ValidateOfficesInTenant(user, offices)...)

	if !errs.Valid() {
		s.recordFailures(errs)
		return errs
	}
	return nil
}

func hasGroup(groups []model.SecurityGroup, code string) bool {
	for _, g := range groups {
		if g.Code == code {
			return true
		}
	}
	return false
}

func (s *Service) recordFailures(errs access.ValidationErrors) {
	if s.metrics == nil {
		return
	}
	for _, e := range errs {
		field := e.Field
		if i := strings.IndexByte(field, '['); i >= 0 {
			field = field[:i]
		}
		s.metrics.ValidationFailure.WithLabelValues(field, e.Reason).Inc()
	}
}

func (s *Service) emit(ctx context.Context, user *model.User, eventType event.EventType) {
	if s.events == nil {
		return
	}
	_ = s.events.Emit(ctx, user.PGID, eventType, map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
		"active":   user.Active,
	})
}

func normalizeOffices(user *model.User) {
	user.HomeOfficeID = access.NormalizeOfficeID(user.HomeOfficeID)
	user.AssignedOfficeIDs = access.NormalizeOfficeIDs(user.AssignedOfficeIDs)
}
