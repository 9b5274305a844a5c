package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/access-api/internal/repository"
	"github.com/jwalitptl/access-api/pkg/metrics"
)

// Repositories bundles every postgres repository over one connection pool.
type Repositories struct {
	Organizations  repository.OrganizationRepository
	Offices        repository.OfficeRepository
	OfficeGroups   repository.OfficeGroupRepository
	SecurityGroups repository.SecurityGroupRepository
	Users          repository.UserRepository
}

func NewRepositories(db *sqlx.DB, m *metrics.Metrics) *Repositories {
	base := NewBaseRepository(db, m)
	return &Repositories{
		Organizations:  NewOrganizationRepository(base),
		Offices:        NewOfficeRepository(base),
		OfficeGroups:   NewOfficeGroupRepository(base),
		SecurityGroups: NewSecurityGroupRepository(base),
		Users:          NewUserRepository(base),
	}
}
