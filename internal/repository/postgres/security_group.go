package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/jwalitptl/access-api/internal/model"
	"github.com/jwalitptl/access-api/internal/repository"
)

type securityGroupRepository struct {
	BaseRepository
}

func NewSecurityGroupRepository(base BaseRepository) repository.SecurityGroupRepository {
	return &securityGroupRepository{base}
}

type securityGroupRow struct {
	PGID         string         `db:"pgid"`
	Code         string         `db:"code"`
	Name         string         `db:"name"`
	Capabilities pq.StringArray `db:"capabilities"`
}

func toCapabilities(raw []string) []model.Capability {
	caps := make([]model.Capability, len(raw))
	for i, c := range raw {
		caps[i] = model.Capability(c)
	}
	return caps
}

// Capabilities returns nothing, not an error, for a code the tenant never defined.
func (r *securityGroupRepository) Capabilities(ctx context.Context, pgid, code string) ([]model.Capability, error) {
	query := `
		SELECT capabilities
		FROM security_groups
		WHERE pgid = $1 AND code = $2
	`
	var caps pq.StringArray
	err := r.observe("security_group_capabilities", func() error {
		err := r.db.QueryRowxContext(ctx, query, pgid, code).Scan(&caps)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get capabilities for %s: %w", code, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toCapabilities(caps), nil
}

func (r *securityGroupRepository) List(ctx context.Context, pgid string) ([]model.SecurityGroup, error) {
	query := `
		SELECT pgid, code, name, capabilities
		FROM security_groups
		WHERE pgid = $1
		ORDER BY code
	`
	var rows []securityGroupRow
	err := r.observe("security_group_list", func() error {
		if err := r.db.SelectContext(ctx, &rows, query, pgid); err != nil {
			return fmt.Errorf("failed to list security groups: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	groups := make([]model.SecurityGroup, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, model.SecurityGroup{
			PGID:         row.PGID,
			Code:         row.Code,
			Name:         row.Name,
			Capabilities: toCapabilities(row.Capabilities),
		})
	}
	return groups, nil
}
