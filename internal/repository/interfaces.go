package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/access-api/internal/model"
)

// ErrNotFound is wrapped by every repository when a row does not exist in the tenant.
var ErrNotFound = errors.New("not found")

// All repository interfaces in one file
type (
	// OrganizationRepository reads provisioned practice groups
	OrganizationRepository interface {
		Get(ctx context.Context, pgid string) (*model.Organization, error)
	}

	// OfficeRepository reads the office directory of one tenant
	OfficeRepository interface {
		List(ctx context.Context, pgid string) ([]model.Office, error)
		Get(ctx context.Context, pgid, officeID string) (*model.Office, error)
	}

	OfficeGroupRepository interface {
		Get(ctx context.Context, pgid, groupID string) (*model.OfficeGroup, error)
		List(ctx context.Context, pgid string) ([]model.OfficeGroup, error)
	}

	// SecurityGroupRepository is the group to capability table
	SecurityGroupRepository interface {
		Capabilities(ctx context.Context, pgid, code string) ([]model.Capability, error)
		List(ctx context.Context, pgid string) ([]model.SecurityGroup, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByUsername(ctx context.Context, pgid, username string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		Delete(ctx context.Context, id uuid.UUID) error
		SetActive(ctx context.Context, id uuid.UUID, active bool) error
		HasTransactionalHistory(ctx context.Context, id uuid.UUID) (bool, error)
		List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
	}
)
