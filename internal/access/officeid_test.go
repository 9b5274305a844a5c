package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/access-api/internal/model"
)

func TestNormalizeOfficeID(t *testing.T) {
	cases := map[string]string{
		"O-123":    "123",
		"123":      "123",
		" O-7 ":    "7",
		"O-O-5":    "5",
		"":         "",
		"O-":       "",
		"office-9": "office-9",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeOfficeID(in), "input %q", in)
	}
}

func TestNormalizeOfficeIDIdempotent(t *testing.T) {
	inputs := []string{"O-1", "1", "O-O-O-2", " O- 3", "x", "", "O-", "o-4", "O-0042"}
	for _, in := range inputs {
		once := NormalizeOfficeID(in)
		assert.Equal(t, once, NormalizeOfficeID(once), "input %q", in)
	}
}

func TestOIDRoundTrip(t *testing.T) {
	for _, o := range testDirectory() {
		assert.Equal(t, o.OfficeID, NormalizeOfficeID(o.OID))
		assert.Equal(t, o.OID, FormatOID(o.OfficeID))
	}
}

func TestNormalizeOfficeIDs(t *testing.T) {
	assert.Equal(t, []string{"5", "6"}, NormalizeOfficeIDs([]string{"O-5", "5", "", "6", "O-6"}))
}

func TestResolveOfficeName(t *testing.T) {
	dir := testDirectory()

	assert.Equal(t, "Downtown", ResolveOfficeName("1", dir))
	assert.Equal(t, "Uptown", ResolveOfficeName("O-2", dir))
	assert.Equal(t, UnknownOfficeName, ResolveOfficeName("99", dir))
	assert.Equal(t, UnknownOfficeName, ResolveOfficeName("1", nil))
}

func TestResolveOfficeNameExactMatchWins(t *testing.T) {
	dir := []model.Office{
		{OfficeID: "9", OID: "O-3", Name: "Mislabelled"},
		{OfficeID: "3", OID: "O-3", Name: "Real"},
	}
	assert.Equal(t, "Real", ResolveOfficeName("3", dir))
}

func testDirectory() []model.Office {
	return []model.Office{
		{PGID: "pg1", OfficeID: "1", OID: "O-1", Name: "Downtown", Active: true},
		{PGID: "pg1", OfficeID: "2", OID: "O-2", Name: "Uptown", Active: true},
		{PGID: "pg1", OfficeID: "3", OID: "O-3", Name: "Lakeside", Active: true},
		{PGID: "pg1", OfficeID: "4", OID: "O-4", Name: "Closed Clinic", Active: false},
	}
}
