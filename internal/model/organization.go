package model

import (
	"time"
)

// OIDPrefix is the display prefix of an office identifier ("O-123").
const OIDPrefix = "O-"

// Organization is a practice group, the tenant boundary.
type Organization struct {
	PGID      string    `db:"pgid" json:"pgid"`
	Name      string    `db:"pgid_name" json:"pgid_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Office is a physical or billing location inside an organization.
type Office struct {
	PGID     string `db:"pgid" json:"pgid"`
	OfficeID string `db:"office_id" json:"office_id"`
	OID      string `db:"oid" json:"oid"`
	Name     string `db:"name" json:"name"`
	Active   bool   `db:"active" json:"active"`
	// TimeZone is an IANA zone name; empty means UTC.
	TimeZone  string    `db:"time_zone" json:"time_zone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OfficeGroup is a named set of offices used to widen search scope.
type OfficeGroup struct {
	PGID      string   `json:"pgid"`
	GroupID   string   `json:"group_id"`
	Name      string   `json:"name"`
	OfficeIDs []string `json:"office_ids"`
}
