package user

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/access-api/internal/access"
	"github.com/jwalitptl/access-api/internal/middleware"
	"github.com/jwalitptl/access-api/internal/model"
	"github.com/jwalitptl/access-api/internal/repository"
	"github.com/jwalitptl/access-api/internal/service/user"
)

// stubService implements only what each test exercises; other calls panic.
type stubService struct {
	user.UserServicer

	created     *model.User
	createErr   error
	getErr      error
	deleteErr   error
	officeErr   error
	restriction model.LoginRestriction
}

func (s *stubService) CreateUser(ctx context.Context, pgid string, u *model.User) error {
	s.created = u
	return s.createErr
}

func (s *stubService) GetUser(ctx context.Context, pgid string, id uuid.UUID) (*model.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &model.User{Base: model.Base{ID: id}, PGID: pgid, Username: "jdoe"}, nil
}

func (s *stubService) DeleteUser(ctx context.Context, pgid string, id uuid.UUID) error {
	return s.deleteErr
}

func (s *stubService) RemoveOffice(ctx context.Context, pgid string, id uuid.UUID, officeID string) (*model.User, error) {
	if s.officeErr != nil {
		return nil, s.officeErr
	}
	return &model.User{Base: model.Base{ID: id}}, nil
}

func (s *stubService) SetLoginRestriction(ctx context.Context, pgid string, id uuid.UUID, r model.LoginRestriction) (*model.User, error) {
	s.restriction = r
	return &model.User{Base: model.Base{ID: id}, LoginRestriction: r}, nil
}

func (s *stubService) AddPermittedIP(ctx context.Context, pgid string, id uuid.UUID, entry string) (*model.User, error) {
	return &model.User{Base: model.Base{ID: id}, PermittedIPs: []string{entry}}, nil
}

func newRouter(svc user.UserServicer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Validation(middleware.DefaultValidationConfig()))
	api := r.Group("/api/v1", func(c *gin.Context) {
		c.Set(middleware.ContextPGID, "pg1")
	})
	NewHandler(svc).RegisterRoutes(api)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func userPath(suffix string) string {
	return fmt.Sprintf("/api/v1/users/%s%s", uuid.New(), suffix)
}

func TestCreateUserAcceptsCamelCase(t *testing.T) {
	svc := &stubService{}
	w := do(newRouter(svc), http.MethodPost, "/api/v1/users",
		`{"userName":"jdoe","homeOfficeId":"O-5","assignedOfficeIds":[5,"O-6"],"permittedIps":[]}`)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "jdoe", svc.created.Username)
	assert.Equal(t, "5", svc.created.HomeOfficeID)
	assert.Equal(t, []string{"5", "6"}, svc.created.AssignedOfficeIDs)
}

func TestCreateUserErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"malformed payload", `[1,2]`, nil, http.StatusBadRequest},
		{"invalid record", `{"username":""}`, access.ValidationErrors{{Field: "username", Reason: access.ReasonRequired}}, http.StatusUnprocessableEntity},
		{"username taken", `{"username":"jdoe"}`, user.ErrUsernameTaken, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(&stubService{createErr: tt.err}), http.MethodPost, "/api/v1/users", tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestCreateUserReportsEveryField(t *testing.T) {
	verrs := access.ValidationErrors{
		{Field: "username", Reason: access.ReasonRequired},
		{Field: "permitted_ips[0]", Reason: access.ReasonInvalidIP},
	}
	w := do(newRouter(&stubService{createErr: verrs}), http.MethodPost, "/api/v1/users", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Error struct {
			Details []access.FieldError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []access.FieldError(verrs), body.Error.Details)
}

func TestGetUser(t *testing.T) {
	assert.Equal(t, http.StatusOK, do(newRouter(&stubService{}), http.MethodGet, userPath(""), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(newRouter(&stubService{}), http.MethodGet, "/api/v1/users/42", "").Code)

	svc := &stubService{getErr: fmt.Errorf("failed to get user: %w", repository.ErrNotFound)}
	assert.Equal(t, http.StatusNotFound, do(newRouter(svc), http.MethodGet, userPath(""), "").Code)
}

func TestDeleteUser(t *testing.T) {
	w := do(newRouter(&stubService{}), http.MethodDelete, userPath(""), "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(newRouter(&stubService{deleteErr: user.ErrUserHasHistory}), http.MethodDelete, userPath(""), "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRemoveHomeOfficeConflict(t *testing.T) {
	svc := &stubService{officeErr: access.ErrRemoveHomeOffice}
	w := do(newRouter(svc), http.MethodDelete, userPath("/offices/5"), "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAddPermittedIPValidation(t *testing.T) {
	r := newRouter(&stubService{})

	tests := []struct {
		entry  string
		status int
	}{
		{"10.0.0.1", http.StatusOK},
		{"10.0.0.0/24", http.StatusOK},
		{"10.0.0.256", http.StatusUnprocessableEntity},
		{"fe80::1", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			w := do(r, http.MethodPost, userPath("/permitted-ips"), `{"entry":"`+tt.entry+`"}`)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnprocessableEntity {
				assert.Contains(t, w.Body.String(), access.ReasonInvalidIP)
			}
		})
	}
}

func TestSetLoginRestriction(t *testing.T) {
	svc := &stubService{}
	w := do(newRouter(svc), http.MethodPut, userPath("/login-restriction"),
		`{"restricted":true,"allowed_days":["mon","Tuesday","mon"],"allowed_from":"08:00","allowed_until":"17:30","time_zone":"America/New_York"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.restriction.Restricted)
	assert.Equal(t, model.Weekdays{time.Monday, time.Tuesday}, svc.restriction.AllowedDays)
	assert.Equal(t, model.ClockTime(8*60), svc.restriction.AllowedFrom)
	assert.Equal(t, model.ClockTime(17*60+30), svc.restriction.AllowedUntil)
	assert.Equal(t, "America/New_York", svc.restriction.TimeZone)
}

func TestSetLoginRestrictionRejectsBadWindow(t *testing.T) {
	w := do(newRouter(&stubService{}), http.MethodPut, userPath("/login-restriction"),
		`{"restricted":true,"allowed_days":["mon"],"allowed_from":"25:00","allowed_until":"17:00"}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"allowed_from"`)
	assert.Contains(t, w.Body.String(), access.ReasonInvalidWindow)
}

func TestClearLoginRestriction(t *testing.T) {
	svc := &stubService{restriction: model.LoginRestriction{Restricted: true}}
	w := do(newRouter(svc), http.MethodPut, userPath("/login-restriction"), `{"restricted":false}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.Unrestricted, svc.restriction)
}
