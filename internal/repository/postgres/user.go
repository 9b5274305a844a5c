package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/access-api/internal/model"
	"github.com/jwalitptl/access-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

// userRow carries the array columns sqlx cannot map onto plain slices.
type userRow struct {
	model.User
	AssignedOffices pq.StringArray `db:"assigned_office_ids"`
	Groups          pq.StringArray `db:"security_groups"`
	IPs             pq.StringArray `db:"permitted_ips"`
}

func (row *userRow) toModel() *model.User {
	u := row.User
	u.AssignedOfficeIDs = []string(row.AssignedOffices)
	u.SecurityGroups = []string(row.Groups)
	u.PermittedIPs = []string(row.IPs)
	return &u
}

const userColumns = `
	u.id, u.pgid, u.username, u.first_name, u.last_name, u.email, u.phone,
	u.active, u.home_office_id::text AS home_office_id, u.role,
	u.security_groups, u.permitted_ips, u.login_restriction,
	u.patient_access_level, u.last_login_at,
	u.created_at, u.updated_at, u.deleted_at,
	ARRAY(
		SELECT uo.office_id::text FROM user_offices uo
		WHERE uo.user_id = u.id ORDER BY uo.office_id
	) AS assigned_office_ids
`

const insertUserOffices = `
	INSERT INTO user_offices (user_id, office_id, created_at)
	SELECT $1, unnest($2::bigint[]), $3
	ON CONFLICT (user_id, office_id) DO NOTHING
`

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (
			id, pgid, username, first_name, last_name, email, phone, active,
			home_office_id, role, security_groups, permitted_ips,
			login_restriction, patient_access_level, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::bigint, $10, $11, $12, $13, $14, $15, $16)
	`

	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	return r.observe("user_create", func() error {
		return r.WithTx(ctx, func(tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, query,
				user.ID,
				user.PGID,
				user.Username,
				user.FirstName,
				user.LastName,
				user.Email,
				user.Phone,
				user.Active,
				user.HomeOfficeID,
				user.Role,
				pq.Array(user.SecurityGroups),
				pq.Array(user.PermittedIPs),
				user.LoginRestriction,
				user.PatientAccessLevel,
				user.CreatedAt,
				user.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			if _, err := tx.ExecContext(ctx, insertUserOffices, user.ID, pq.Array(user.AssignedOfficeIDs), user.CreatedAt); err != nil {
				return fmt.Errorf("failed to assign user offices: %w", err)
			}
			return nil
		})
	})
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users u
		WHERE u.id = $1 AND u.deleted_at IS NULL
	`

	var row userRow
	err := r.observe("user_get", func() error {
		if err := r.db.GetContext(ctx, &row, query, id); err != nil {
			return notFound(err, "user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *userRepository) GetByUsername(ctx context.Context, pgid, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users u
		WHERE u.pgid = $1 AND lower(u.username) = lower($2) AND u.deleted_at IS NULL
	`

	var row userRow
	err := r.observe("user_get_by_username", func() error {
		if err := r.db.GetContext(ctx, &row, query, pgid, username); err != nil {
			return notFound(err, "user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// Update rewrites the user row and replaces the assigned office set in one transaction.
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users SET
			username = $1,
			first_name = $2,
			last_name = $3,
			email = $4,
			phone = $5,
			active = $6,
			home_office_id = $7::bigint,
			role = $8,
			security_groups = $9,
			permitted_ips = $10,
			login_restriction = $11,
			patient_access_level = $12,
			updated_at = $13
		WHERE id = $14 AND pgid = $15 AND deleted_at IS NULL
	`

	user.UpdatedAt = time.Now()

	return r.observe("user_update", func() error {
		return r.WithTx(ctx, func(tx *sqlx.Tx) error {
			result, err := tx.ExecContext(ctx, query,
				user.Username,
				user.FirstName,
				user.LastName,
				user.Email,
				user.Phone,
				user.Active,
				user.HomeOfficeID,
				user.Role,
				pq.Array(user.SecurityGroups),
				pq.Array(user.PermittedIPs),
				user.LoginRestriction,
				user.PatientAccessLevel,
				user.UpdatedAt,
				user.ID,
				user.PGID,
			)
			if err != nil {
				return fmt.Errorf("failed to update user: %w", err)
			}
			if err := checkAffected(result, "user"); err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx, `DELETE FROM user_offices WHERE user_id = $1`, user.ID); err != nil {
				return fmt.Errorf("failed to clear user offices: %w", err)
			}
			if _, err := tx.ExecContext(ctx, insertUserOffices, user.ID, pq.Array(user.AssignedOfficeIDs), user.UpdatedAt); err != nil {
				return fmt.Errorf("failed to assign user offices: %w", err)
			}
			return nil
		})
	})
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.observe("user_delete", func() error {
		result, err := r.db.ExecContext(ctx, query, id)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return checkAffected(result, "user")
	})
}

func (r *userRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `
		UPDATE users
		SET active = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
	`

	return r.observe("user_set_active", func() error {
		result, err := r.db.ExecContext(ctx, query, active, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to update user status: %w", err)
		}
		return checkAffected(result, "user")
	})
}

// HasTransactionalHistory reports whether the user created appointments or posted payments.
func (r *userRepository) HasTransactionalHistory(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM appointments WHERE created_by = $1)
			OR EXISTS (SELECT 1 FROM payments WHERE posted_by = $1)
	`

	var exists bool
	err := r.observe("user_history", func() error {
		if err := r.db.QueryRowxContext(ctx, query, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check user history: %w", err)
		}
		return nil
	})
	return exists, err
}

func (r *userRepository) List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users u
		WHERE u.deleted_at IS NULL
	`
	args := []interface{}{}

	if filters.PGID != "" {
		query += fmt.Sprintf(" AND u.pgid = $%d", len(args)+1)
		args = append(args, filters.PGID)
	}

	if filters.OfficeID != "" {
		query += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM user_offices f WHERE f.user_id = u.id AND f.office_id::text = $%d)", len(args)+1)
		args = append(args, filters.OfficeID)
	}

	if filters.Role != "" {
		query += fmt.Sprintf(" AND u.role = $%d", len(args)+1)
		args = append(args, filters.Role)
	}

	if filters.Active != nil {
		query += fmt.Sprintf(" AND u.active = $%d", len(args)+1)
		args = append(args, *filters.Active)
	}

	if term := strings.TrimSpace(filters.SearchTerm); term != "" {
		n := len(args) + 1
		query += fmt.Sprintf(" AND (u.username ILIKE $%d OR u.first_name ILIKE $%d OR u.last_name ILIKE $%d OR u.email ILIKE $%d)", n, n, n, n)
		args = append(args, "%"+term+"%")
	}

	query += " ORDER BY u.last_name, u.first_name"

	var rows []userRow
	err := r.observe("user_list", func() error {
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	users := make([]*model.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toModel())
	}
	return users, nil
}
