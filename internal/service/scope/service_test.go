package scope

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/access-api/internal/access"
	"github.com/jwalitptl/access-api/internal/model"
	"github.com/jwalitptl/access-api/internal/repository"
	"github.com/jwalitptl/access-api/pkg/metrics"
)

type stubUsers map[uuid.UUID]*model.User

func (s stubUsers) GetUser(ctx context.Context, pgid string, id uuid.UUID) (*model.User, error) {
	u, ok := s[id]
	if !ok || u.PGID != pgid {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type stubDirectory struct {
	requested []string
}

func (s *stubDirectory) Directory(ctx context.Context, pgid string, groupIDs ...string) (access.Directory, error) {
	s.requested = groupIDs
	dir := access.Directory{
		Offices: []model.Office{
			{OfficeID: "1", Active: true},
			{OfficeID: "2", Active: true},
			{OfficeID: "3", Active: false},
		},
		Groups: map[string]model.OfficeGroup{},
	}
	for _, id := range groupIDs {
		if id == "north" {
			dir.Groups[id] = model.OfficeGroup{GroupID: id, OfficeIDs: []string{"2", "3"}}
		}
	}
	return dir, nil
}

func TestResolveOfficeGroup(t *testing.T) {
	u := &model.User{Base: model.Base{ID: uuid.New()}, PGID: "pg1", AssignedOfficeIDs: []string{"1", "2"}, HomeOfficeID: "1"}
	dir := &stubDirectory{}
	m := metrics.NewWithRegistry(prometheus.NewRegistry(), "test")
	svc := NewService(stubUsers{u.ID: u}, dir, m)

	res, err := svc.Resolve(context.Background(), "pg1", u.ID, access.InOfficeGroup("north"))
	require.NoError(t, err)
	assert.Equal(t, access.OfficeSet{"2"}, res.Offices)
	assert.Equal(t, []string{"north"}, dir.requested)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ScopeResolutions.WithLabelValues("office_group", "false")))
}

func TestResolveCurrentOutsideAssignmentIsEmpty(t *testing.T) {
	u := &model.User{Base: model.Base{ID: uuid.New()}, PGID: "pg1", AssignedOfficeIDs: []string{"1"}, HomeOfficeID: "1"}
	m := metrics.NewWithRegistry(prometheus.NewRegistry(), "test")
	svc := NewService(stubUsers{u.ID: u}, &stubDirectory{}, m)

	res, err := svc.Resolve(context.Background(), "pg1", u.ID, access.CurrentOffice("O-2"))
	require.NoError(t, err)
	assert.True(t, res.Offices.Empty())
	assert.NotNil(t, res.Offices)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ScopeResolutions.WithLabelValues("current", "true")))
}

func TestResolveAllOfficesForAllAccessUser(t *testing.T) {
	u := &model.User{
		Base:               model.Base{ID: uuid.New()},
		PGID:               "pg1",
		AssignedOfficeIDs:  []string{"1"},
		HomeOfficeID:       "1",
		PatientAccessLevel: model.PatientAccessAll,
	}
	svc := NewService(stubUsers{u.ID: u}, &stubDirectory{}, nil)

	res, err := svc.Resolve(context.Background(), "pg1", u.ID, access.AllOffices())
	require.NoError(t, err)
	assert.Equal(t, access.OfficeSet{"1", "2"}, res.Offices)
}

func TestResolveUnknownUser(t *testing.T) {
	svc := NewService(stubUsers{}, &stubDirectory{}, nil)

	_, err := svc.Resolve(context.Background(), "pg1", uuid.New(), access.AllOffices())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
