package scope

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/jwalitptl/access-api/internal/access"
	"github.com/jwalitptl/access-api/internal/model"
	"github.com/jwalitptl/access-api/pkg/metrics"
)

type UserGetter interface {
	GetUser(ctx context.Context, pgid string, id uuid.UUID) (*model.User, error)
}

type DirectoryLoader interface {
	Directory(ctx context.Context, pgid string, groupIDs ...string) (access.Directory, error)
}

// Result is a resolved scope ready to hand to a patient search.
type Result struct {
	Scope   access.Scope     `json:"scope"`
	Offices access.OfficeSet `json:"office_ids"`
}

type Service struct {
	users     UserGetter
	directory DirectoryLoader
	metrics   *metrics.Metrics
}

func NewService(users UserGetter, directory DirectoryLoader, m *metrics.Metrics) *Service {
	return &Service{users: users, directory: directory, metrics: m}
}

// Resolve loads the user and a directory snapshot, then computes the offices the request may query.
// An empty result is a valid answer meaning nothing may be searched.
func (s *Service) Resolve(ctx context.Context, pgid string, userID uuid.UUID, scope access.Scope) (*Result, error) {
	user, err := s.users.GetUser(ctx, pgid, userID)
	if err != nil {
		return nil, err
	}

	var groups []string
	if scope.Kind == access.ScopeOfficeGroup {
		groups = append(groups, scope.GroupID)
	}
	dir, err := s.directory.Directory(ctx, pgid, groups...)
	if err != nil {
		return nil, fmt.Errorf("failed to load office directory: %w", err)
	}

	offices := access.ResolveScope(user, scope, dir)
	if s.metrics != nil {
		s.metrics.ScopeResolutions.WithLabelValues(string(scope.Kind), strconv.FormatBool(offices.Empty())).Inc()
		s.metrics.ScopeSize.Observe(float64(len(offices)))
	}
	return &Result{Scope: scope, Offices: offices}, nil
}
