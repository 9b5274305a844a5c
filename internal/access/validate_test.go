package access

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/access-api/internal/model"
)

func validUser() *model.User {
	return &model.User{
		PGID:               "pg1",
		Username:           "jdoe",
		FirstName:          "Jane",
		LastName:           "Doe",
		Email:              "jane@example.com",
		Active:             true,
		HomeOfficeID:       "5",
		AssignedOfficeIDs:  []string{"5", "6"},
		Role:               model.RoleFrontDesk,
		SecurityGroups:     []string{"scheduling"},
		PatientAccessLevel: model.PatientAccessAssignedOnly,
	}
}

func TestValidateUserValid(t *testing.T) {
	errs := ValidateUser(validUser())
	assert.True(t, errs.Valid())
	assert.NoError(t, errs.Err())
}

func TestValidateUserMissingUsernameOnly(t *testing.T) {
	u := validUser()
	u.Username = ""

	errs := ValidateUser(u)
	require.Len(t, errs, 1)
	assert.Equal(t, FieldError{Field: "username", Reason: ReasonRequired}, errs[0])
}

func TestValidateUserCollectsEveryViolation(t *testing.T) {
	u := &model.User{
		HomeOfficeID:      "",
		AssignedOfficeIDs: nil,
		PermittedIPs:      []string{"10.0.0.1", "not-an-ip", "300.1.1.1/24"},
		SecurityGroups:    []string{"a", "a"},
	}

	errs := ValidateUser(u)
	assert.Equal(t, ValidationErrors{
		{Field: "username", Reason: ReasonRequired},
		{Field: "first_name", Reason: ReasonRequired},
		{Field: "last_name", Reason: ReasonRequired},
		{Field: "email", Reason: ReasonRequired},
		{Field: "home_office_id", Reason: ReasonRequired},
		{Field: "assigned_office_ids", Reason: ReasonEmpty},
		{Field: "permitted_ips[1]", Reason: ReasonInvalidIP},
		{Field: "permitted_ips[2]", Reason: ReasonInvalidIP},
		{Field: "security_groups", Reason: ReasonDuplicate},
	}, errs)

	var target ValidationErrors
	assert.True(t, errors.As(errs.Err(), &target))
}

func TestValidateUserHomeOfficeMustBeAssigned(t *testing.T) {
	u := validUser()
	u.HomeOfficeID = "7"

	errs := ValidateUser(u)
	require.Len(t, errs, 1)
	assert.Equal(t, ReasonHomeOfficeNotAssigned, errs[0].Reason)
}

func TestValidateUserHomeOfficeEmptyAfterNormalizing(t *testing.T) {
	for _, home := range []string{"O-", " O- ", "   "} {
		u := validUser()
		u.HomeOfficeID = home

		errs := ValidateUser(u)
		require.Len(t, errs, 1, "home %q", home)
		assert.Equal(t, FieldError{Field: "home_office_id", Reason: ReasonRequired}, errs[0])
	}
}

func TestValidateUserComparesNormalizedOfficeIDs(t *testing.T) {
	u := validUser()
	u.HomeOfficeID = "O-5"
	u.AssignedOfficeIDs = []string{"5", "O-6"}

	assert.True(t, ValidateUser(u).Valid())
}

// Removing the home office from the assigned set without moving the home
// office must never validate.
func TestValidateUserRejectsHomeOfficeRemoval(t *testing.T) {
	offices := []string{"1", "2", "3", "4", "5"}
	for _, home := range offices {
		u := validUser()
		u.HomeOfficeID = home
		u.AssignedOfficeIDs = append([]string(nil), offices...)
		require.True(t, ValidateUser(u).Valid())

		var remaining []string
		for _, o := range offices {
			if o != home {
				remaining = append(remaining, o)
			}
		}
		u.AssignedOfficeIDs = remaining

		errs := ValidateUser(u)
		require.Len(t, errs, 1, "home %s", home)
		assert.Equal(t, ReasonHomeOfficeNotAssigned, errs[0].Reason)
	}
}

func TestValidateUserLoginRestriction(t *testing.T) {
	u := validUser()
	u.LoginRestriction = model.LoginRestriction{
		Restricted:   true,
		AllowedFrom:  8 * 60,
		AllowedUntil: 8 * 60,
		TimeZone:     "Mars/Olympus",
	}

	assert.Equal(t, ValidationErrors{
		{Field: "login_restriction.allowed_days", Reason: ReasonEmpty},
		{Field: "login_restriction.allowed_until", Reason: ReasonInvalidWindow},
		{Field: "login_restriction.time_zone", Reason: ReasonInvalidTimeZone},
	}, ValidateUser(u))

	u.LoginRestriction = model.LoginRestriction{
		Restricted:   true,
		AllowedDays:  model.Weekdays{time.Monday},
		AllowedFrom:  8 * 60,
		AllowedUntil: 18 * 60,
		TimeZone:     "UTC",
	}
	assert.True(t, ValidateUser(u).Valid())
}

func TestValidateUserAccessLevel(t *testing.T) {
	u := validUser()
	u.PatientAccessLevel = "everything"

	errs := ValidateUser(u)
	require.Len(t, errs, 1)
	assert.Equal(t, ReasonInvalidAccessLevel, errs[0].Reason)
}

func TestValidateOfficesInTenant(t *testing.T) {
	u := validUser()
	u.AssignedOfficeIDs = []string{"1", "O-2", "42"}

	errs := ValidateOfficesInTenant(u, testDirectory())
	assert.Equal(t, ValidationErrors{{Field: "assigned_office_ids[2]", Reason: ReasonUnknownOffice}}, errs)
}

func TestParsePermittedIP(t *testing.T) {
	valid := []string{"192.168.1.10", "10.0.0.0/8", "0.0.0.0/0", " 172.16.0.1 "}
	for _, v := range valid {
		_, err := ParsePermittedIP(v)
		assert.NoError(t, err, v)
	}

	invalid := []string{"", "1.2.3", "1.2.3.4.5", "256.1.1.1", "1.2.3.4/33", "::1", "10.0.0.0/", "a.b.c.d", "1234.1.1.1",
		// Leading zeros are ambiguous between decimal and octal.
		"192.168.001.1", "010.0.0.0/8"}
	for _, v := range invalid {
		_, err := ParsePermittedIP(v)
		assert.ErrorIs(t, err, ErrInvalidIP, v)
	}
}
