package office

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwalitptl/access-api/internal/access"
	"github.com/jwalitptl/access-api/internal/model"
	"github.com/jwalitptl/access-api/internal/repository"
)

var (
	ErrDuplicateOfficeID = errors.New("duplicate office id")
	ErrOIDMismatch       = errors.New("office oid does not normalize to its office id")
)

type OfficeServicer interface {
	GetOrganization(ctx context.Context, pgid string) (*model.Organization, error)
	ListOffices(ctx context.Context, pgid string) ([]model.Office, error)
	ResolveName(ctx context.Context, pgid, officeID string) (string, error)
	GetOfficeGroup(ctx context.Context, pgid, groupID string) (*model.OfficeGroup, error)
	CheckTenant(ctx context.Context, pgid string) error
}

type Service struct {
	orgs    repository.OrganizationRepository
	offices repository.OfficeRepository
	groups  repository.OfficeGroupRepository
}

func NewService(orgs repository.OrganizationRepository, offices repository.OfficeRepository, groups repository.OfficeGroupRepository) *Service {
	return &Service{orgs: orgs, offices: offices, groups: groups}
}

func (s *Service) GetOrganization(ctx context.Context, pgid string) (*model.Organization, error) {
	org, err := s.orgs.Get(ctx, pgid)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

func (s *Service) ListOffices(ctx context.Context, pgid string) ([]model.Office, error) {
	offices, err := s.offices.List(ctx, pgid)
	if err != nil {
		return nil, fmt.Errorf("failed to list offices: %w", err)
	}
	return offices, nil
}

// ResolveName never fails on a missing office. Only a directory read error is returned.
func (s *Service) ResolveName(ctx context.Context, pgid, officeID string) (string, error) {
	offices, err := s.ListOffices(ctx, pgid)
	if err != nil {
		return "", err
	}
	return access.ResolveOfficeName(officeID, offices), nil
}

func (s *Service) GetOfficeGroup(ctx context.Context, pgid, groupID string) (*model.OfficeGroup, error) {
	group, err := s.groups.Get(ctx, pgid, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get office group: %w", err)
	}
	return group, nil
}

// Directory builds the snapshot a scope evaluation runs against. Groups that do
// not exist are left out, which resolves to an empty scope.
func (s *Service) Directory(ctx context.Context, pgid string, groupIDs ...string) (access.Directory, error) {
	offices, err := s.ListOffices(ctx, pgid)
	if err != nil {
		return access.Directory{}, err
	}

	dir := access.Directory{
		Offices: offices,
		Groups:  make(map[string]model.OfficeGroup, len(groupIDs)),
	}
	for _, id := range groupIDs {
		group, err := s.groups.Get(ctx, pgid, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return access.Directory{}, fmt.Errorf("failed to get office group: %w", err)
		}
		dir.Groups[id] = *group
	}
	return dir, nil
}

// CheckDirectory verifies that office ids are unique and every oid normalizes back to its id.
func CheckDirectory(offices []model.Office) error {
	var errs []error
	seen := make(map[string]struct{}, len(offices))
	for _, o := range offices {
		id := access.NormalizeOfficeID(o.OfficeID)
		if _, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateOfficeID, id))
		}
		seen[id] = struct{}{}

		if o.OID != "" && access.NormalizeOfficeID(o.OID) != id {
			errs = append(errs, fmt.Errorf("%w: %s has oid %s", ErrOIDMismatch, id, o.OID))
		}
	}
	return errors.Join(errs...)
}

// CheckTenant loads a tenant's directory and runs CheckDirectory on it.
func (s *Service) CheckTenant(ctx context.Context, pgid string) error {
	offices, err := s.ListOffices(ctx, pgid)
	if err != nil {
		return err
	}
	return CheckDirectory(offices)
}
