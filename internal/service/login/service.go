package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/access-api/internal/access"
	"github.com/jwalitptl/access-api/internal/model"
	"github.com/jwalitptl/access-api/internal/repository"
	"github.com/jwalitptl/access-api/internal/service/event"
	"github.com/jwalitptl/access-api/pkg/metrics"
)

// UnknownUser is logged when the username does not exist in the tenant. It is
// reported to callers exactly like any other denial.
const UnknownUser access.DenyReason = "unknown_user"

type Attempt struct {
	PGID     string
	Username string
	SourceIP string
	At       time.Time
}

type Service struct {
	users       repository.UserRepository
	offices     repository.OfficeRepository
	events      event.Emitter
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	defaultZone *time.Location
}

func NewService(
	users repository.UserRepository,
	offices repository.OfficeRepository,
	events event.Emitter,
	m *metrics.Metrics,
	logger zerolog.Logger,
	defaultZone *time.Location,
) *Service {
	if defaultZone == nil {
		defaultZone = time.UTC
	}
	return &Service{
		users:       users,
		offices:     offices,
		events:      events,
		metrics:     m,
		logger:      logger,
		defaultZone: defaultZone,
	}
}

// Authorize decides whether a login attempt may proceed right now. The
// returned decision carries the specific reason; callers must not expose it.
func (s *Service) Authorize(ctx context.Context, attempt Attempt) (access.Decision, error) {
	if attempt.At.IsZero() {
		attempt.At = time.Now()
	}

	user, err := s.users.GetByUsername(ctx, attempt.PGID, attempt.Username)
	if errors.Is(err, repository.ErrNotFound) {
		decision := access.Decision{Reason: UnknownUser}
		s.record(ctx, attempt, nil, decision)
		return decision, nil
	}
	if err != nil {
		return access.Decision{}, fmt.Errorf("failed to load user: %w", err)
	}

	decision := access.Authorize(user, access.LoginAttempt{
		SourceIP: attempt.SourceIP,
		At:       attempt.At,
		Location: s.homeZone(ctx, user),
	})
	s.record(ctx, attempt, user, decision)
	return decision, nil
}

// homeZone is the home office zone, falling back to the configured default.
// A restriction with its own zone overrides this inside the gate.
func (s *Service) homeZone(ctx context.Context, user *model.User) *time.Location {
	office, err := s.offices.Get(ctx, user.PGID, user.HomeOfficeID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn().Err(err).Str("office_id", user.HomeOfficeID).Msg("Failed to load home office zone")
		}
		return s.defaultZone
	}
	if office.TimeZone == "" {
		return s.defaultZone
	}
	loc, err := time.LoadLocation(office.TimeZone)
	if err != nil {
		s.logger.Warn().Err(err).Str("time_zone", office.TimeZone).Msg("Invalid office time zone")
		return s.defaultZone
	}
	return loc
}

func (s *Service) record(ctx context.Context, attempt Attempt, user *model.User, decision access.Decision) {
	outcome := "allowed"
	if !decision.Allowed {
		outcome = "denied"
	}
	if s.metrics != nil {
		s.metrics.LoginDecisions.WithLabelValues(outcome, string(decision.Reason)).Inc()
	}

	logEvent := s.logger.Info()
	if !decision.Allowed {
		logEvent = s.logger.Warn().Str("reason", string(decision.Reason))
	}
	logEvent.
		Str("pgid", attempt.PGID).
		Str("username", attempt.Username).
		Str("source_ip", attempt.SourceIP).
		Time("at", attempt.At).
		Msgf("Login %s", outcome)

	if decision.Allowed || s.events == nil {
		return
	}
	payload := map[string]interface{}{
		"username":  attempt.Username,
		"source_ip": attempt.SourceIP,
		"reason":    decision.Reason,
	}
	if user != nil {
		payload["user_id"] = user.ID
	}
	_ = s.events.Emit(ctx, attempt.PGID, event.LoginDenied, payload)
}
