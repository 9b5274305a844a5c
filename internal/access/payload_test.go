package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/access-api/internal/model"
)

func TestDecodeUserPayloadCamelCase(t *testing.T) {
	u, err := DecodeUserPayload([]byte(`{
		"username": "jdoe",
		"firstName": "Jane",
		"lastName": "Doe",
		"email": "jane@example.com",
		"phone": "",
		"active": true,
		"homeOfficeId": "O-5",
		"assignedOfficeIds": [5, "O-6", "5"],
		"securityGroups": ["billing"],
		"permittedIPs": ["10.0.0.0/8"],
		"patientAccessLevel": "all",
		"loginRestriction": {"allowedDays": ["mon", "Friday"], "allowedFrom": "08:00", "allowedUntil": "18:30"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Jane", u.FirstName)
	assert.Equal(t, "Doe", u.LastName)
	assert.Nil(t, u.Phone)
	assert.Equal(t, "5", u.HomeOfficeID)
	assert.Equal(t, []string{"5", "6"}, u.AssignedOfficeIDs)
	assert.Equal(t, []string{"billing"}, u.SecurityGroups)
	assert.Equal(t, []string{"10.0.0.0/8"}, u.PermittedIPs)
	assert.Equal(t, model.PatientAccessAll, u.PatientAccessLevel)
	assert.Equal(t, model.LoginRestriction{
		Restricted:   true,
		AllowedDays:  model.Weekdays{time.Monday, time.Friday},
		AllowedFrom:  8 * 60,
		AllowedUntil: 18*60 + 30,
	}, u.LoginRestriction)
}

func TestDecodeUserPayloadSnakeCaseWins(t *testing.T) {
	u, err := DecodeUserPayload([]byte(`{
		"first_name": "Snake",
		"firstName": "Camel",
		"home_office_id": 7,
		"assigned_office_ids": ["7"],
		"login_restriction": "unrestricted"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Snake", u.FirstName)
	assert.Equal(t, "7", u.HomeOfficeID)
	assert.Equal(t, model.Unrestricted, u.LoginRestriction)
}

func TestDecodeUserPayloadErrors(t *testing.T) {
	bad := []string{
		`not json`,
		`{"homeOfficeId": {"id": 1}}`,
		`{"assignedOfficeIds": "5"}`,
		`{"loginRestriction": "sometimes"}`,
		`{"loginRestriction": {"allowedDays": ["someday"]}}`,
	}
	for _, b := range bad {
		_, err := DecodeUserPayload([]byte(b))
		assert.Error(t, err, b)
	}
}
