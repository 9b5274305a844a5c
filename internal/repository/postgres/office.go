package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/jwalitptl/access-api/internal/model"
	"github.com/jwalitptl/access-api/internal/repository"
)

type officeRepository struct {
	BaseRepository
}

func NewOfficeRepository(base BaseRepository) repository.OfficeRepository {
	return &officeRepository{base}
}

const officeColumns = `
	pgid, office_id::text AS office_id, oid, name, active,
	COALESCE(time_zone, '') AS time_zone, created_at, updated_at
`

func (r *officeRepository) List(ctx context.Context, pgid string) ([]model.Office, error) {
	query := `SELECT ` + officeColumns + `
		FROM offices
		WHERE pgid = $1
		ORDER BY office_id
	`
	var offices []model.Office
	err := r.observe("office_list", func() error {
		if err := r.db.SelectContext(ctx, &offices, query, pgid); err != nil {
			return fmt.Errorf("failed to list offices: %w", err)
		}
		return nil
	})
	return offices, err
}

func (r *officeRepository) Get(ctx context.Context, pgid, officeID string) (*model.Office, error) {
	query := `SELECT ` + officeColumns + `
		FROM offices
		WHERE pgid = $1 AND office_id::text = $2
	`
	var office model.Office
	err := r.observe("office_get", func() error {
		if err := r.db.GetContext(ctx, &office, query, pgid, officeID); err != nil {
			return notFound(err, "office")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &office, nil
}

type officeGroupRepository struct {
	BaseRepository
}

func NewOfficeGroupRepository(base BaseRepository) repository.OfficeGroupRepository {
	return &officeGroupRepository{base}
}

type officeGroupRow struct {
	PGID      string         `db:"pgid"`
	GroupID   string         `db:"group_id"`
	Name      string         `db:"name"`
	OfficeIDs pq.StringArray `db:"office_ids"`
}

func (row officeGroupRow) toModel() model.OfficeGroup {
	return model.OfficeGroup{
		PGID:      row.PGID,
		GroupID:   row.GroupID,
		Name:      row.Name,
		OfficeIDs: []string(row.OfficeIDs),
	}
}

func (r *officeGroupRepository) Get(ctx context.Context, pgid, groupID string) (*model.OfficeGroup, error) {
	query := `
		SELECT pgid, group_id, name, office_ids::text[] AS office_ids
		FROM office_groups
		WHERE pgid = $1 AND group_id = $2
	`
	var row officeGroupRow
	err := r.observe("office_group_get", func() error {
		if err := r.db.GetContext(ctx, &row, query, pgid, groupID); err != nil {
			return notFound(err, "office group")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	group := row.toModel()
	return &group, nil
}

func (r *officeGroupRepository) List(ctx context.Context, pgid string) ([]model.OfficeGroup, error) {
	query := `
		SELECT pgid, group_id, name, office_ids::text[] AS office_ids
		FROM office_groups
		WHERE pgid = $1
		ORDER BY group_id
	`
	var rows []officeGroupRow
	err := r.observe("office_group_list", func() error {
		if err := r.db.SelectContext(ctx, &rows, query, pgid); err != nil {
			return fmt.Errorf("failed to list office groups: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	groups := make([]model.OfficeGroup, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, row.toModel())
	}
	return groups, nil
}
