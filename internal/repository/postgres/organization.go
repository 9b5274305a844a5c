package postgres

import (
	"context"

	"github.com/jwalitptl/access-api/internal/model"
	"github.com/jwalitptl/access-api/internal/repository"
)

type organizationRepository struct {
	BaseRepository
}

func NewOrganizationRepository(base BaseRepository) repository.OrganizationRepository {
	return &organizationRepository{base}
}

func (r *organizationRepository) Get(ctx context.Context, pgid string) (*model.Organization, error) {
	query := `
		SELECT pgid, pgid_name, created_at, updated_at
		FROM organizations
		WHERE pgid = $1
	`
	var org model.Organization
	err := r.observe("organization_get", func() error {
		if err := r.db.GetContext(ctx, &org, query, pgid); err != nil {
			return notFound(err, "organization")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}
