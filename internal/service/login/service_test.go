package login

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/access-api/internal/access"
	"github.com/jwalitptl/access-api/internal/model"
	"github.com/jwalitptl/access-api/internal/repository"
	"github.com/jwalitptl/access-api/internal/service/event"
	"github.com/jwalitptl/access-api/pkg/metrics"
)

type stubUsers struct {
	repository.UserRepository
	user *model.User
}

func (s *stubUsers) GetByUsername(ctx context.Context, pgid, username string) (*model.User, error) {
	if s.user == nil || s.user.PGID != pgid || s.user.Username != username {
		return nil, repository.ErrNotFound
	}
	return s.user.Clone(), nil
}

type stubOffices map[string]model.Office

func (s stubOffices) List(ctx context.Context, pgid string) ([]model.Office, error) {
	return nil, nil
}

func (s stubOffices) Get(ctx context.Context, pgid, officeID string) (*model.Office, error) {
	o, ok := s[officeID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

type recordingEmitter struct {
	types []event.EventType
}

func (r *recordingEmitter) Emit(ctx context.Context, pgid string, eventType event.EventType, payload interface{}) error {
	r.types = append(r.types, eventType)
	return nil
}

func officeHoursUser() *model.User {
	return &model.User{
		Base:         model.Base{ID: uuid.New()},
		PGID:         "pg1",
		Username:     "jdoe",
		Active:       true,
		HomeOfficeID: "5",
		PermittedIPs: []string{"10.0.0.0/8"},
		LoginRestriction: model.LoginRestriction{
			Restricted:   true,
			AllowedDays:  model.Weekdays{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			AllowedFrom:  8 * 60,
			AllowedUntil: 18 * 60,
		},
	}
}

type fixture struct {
	svc     *Service
	events  *recordingEmitter
	metrics *metrics.Metrics
	logs    *bytes.Buffer
}

func newFixture(user *model.User, offices stubOffices) fixture {
	events := &recordingEmitter{}
	m := metrics.NewWithRegistry(prometheus.NewRegistry(), "test")
	logs := &bytes.Buffer{}
	svc := NewService(&stubUsers{user: user}, offices, events, m, zerolog.New(logs), nil)
	return fixture{svc: svc, events: events, metrics: m, logs: logs}
}

func TestAuthorizeAllowedDuringOfficeHours(t *testing.T) {
	f := newFixture(officeHoursUser(), stubOffices{})

	decision, err := f.svc.Authorize(context.Background(), Attempt{
		PGID:     "pg1",
		Username: "jdoe",
		SourceIP: "10.1.2.3",
		At:       time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Empty(t, f.events.types)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LoginDecisions.WithLabelValues("allowed", "")))
}

func TestAuthorizeUsesHomeOfficeZone(t *testing.T) {
	offices := stubOffices{"5": {OfficeID: "5", TimeZone: "America/New_York"}}
	f := newFixture(officeHoursUser(), offices)

	// 21:00 UTC on Monday is 17:00 in New York during daylight saving time.
	decision, err := f.svc.Authorize(context.Background(), Attempt{
		PGID:     "pg1",
		Username: "jdoe",
		SourceIP: "10.1.2.3",
		At:       time.Date(2026, 10, 19, 21, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = f.svc.Authorize(context.Background(), Attempt{
		PGID:     "pg1",
		Username: "jdoe",
		SourceIP: "10.1.2.3",
		At:       time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, access.Decision{Reason: access.OutsideAllowedHours}, decision)
}

func TestAuthorizeDenialIsLoggedAndPublished(t *testing.T) {
	f := newFixture(officeHoursUser(), stubOffices{})

	decision, err := f.svc.Authorize(context.Background(), Attempt{
		PGID:     "pg1",
		Username: "jdoe",
		SourceIP: "192.168.1.10",
		At:       time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, access.IPNotPermitted, decision.Reason)
	assert.Equal(t, []event.EventType{event.LoginDenied}, f.events.types)
	assert.Contains(t, f.logs.String(), `"reason":"ip_not_permitted"`)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LoginDecisions.WithLabelValues("denied", "ip_not_permitted")))
}

func TestAuthorizeUnknownUserIsDenied(t *testing.T) {
	f := newFixture(officeHoursUser(), stubOffices{})

	decision, err := f.svc.Authorize(context.Background(), Attempt{PGID: "pg2", Username: "jdoe", SourceIP: "10.1.2.3"})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, UnknownUser, decision.Reason)
}

func TestAuthorizeInactiveUser(t *testing.T) {
	u := officeHoursUser()
	u.Active = false
	f := newFixture(u, stubOffices{})

	decision, err := f.svc.Authorize(context.Background(), Attempt{PGID: "pg1", Username: "jdoe", SourceIP: "10.1.2.3"})
	require.NoError(t, err)
	assert.Equal(t, access.AccountInactive, decision.Reason)
}
