package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Jurisdiction is the canonical jurisdiction classification shared by courts and judges.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type Jurisdiction string

const (
	// JurisdictionFederal covers federal appellate, district, and specialty courts.
	JurisdictionFederal Jurisdiction = "federal"
	// JurisdictionState covers state supreme and state appellate/trial courts.
	JurisdictionState Jurisdiction = "state"
	// JurisdictionCounty covers county-level trial courts.
	JurisdictionCounty Jurisdiction = "county"
	// JurisdictionMunicipal covers city and municipal courts.
	JurisdictionMunicipal Jurisdiction = "municipal"
	// JurisdictionTribal covers tribal courts.
	JurisdictionTribal Jurisdiction = "tribal"
	// JurisdictionTerritorial covers territorial courts.
	JurisdictionTerritorial Jurisdiction = "territorial"
	// JurisdictionMilitary covers courts-martial and military appellate courts.
	JurisdictionMilitary Jurisdiction = "military"
	// JurisdictionInternational covers international tribunals.
	JurisdictionInternational Jurisdiction = "international"
)

// Valid returns true if the Jurisdiction is one of the canonical values.
func (j Jurisdiction) Valid() bool {
	switch j {
	case JurisdictionFederal, JurisdictionState, JurisdictionCounty, JurisdictionMunicipal,
		JurisdictionTribal, JurisdictionTerritorial, JurisdictionMilitary, JurisdictionInternational:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler for Jurisdiction.
func (j *Jurisdiction) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	jur := Jurisdiction(v)
	if jur.Valid() {
		*j = jur
		return nil
	}
	return fmt.Errorf("invalid Jurisdiction: %q", v)
}

// Court represents one court synced from the upstream catalog.
type Court struct {
	ID           string       `json:"id"                       db:"id"`
	ExternalID   string       `json:"external_id"              db:"external_id"`
	Name         string       `json:"name"                     db:"name"`
	ShortName    *string      `json:"short_name,omitempty"     db:"short_name"`
	Slug         string       `json:"slug"                     db:"slug"`
	Jurisdiction Jurisdiction `json:"jurisdiction"             db:"jurisdiction"`
	CourtType    *string      `json:"court_type,omitempty"     db:"court_type"`
	URL          *string      `json:"url,omitempty"            db:"url"`
	CreatedAt    time.Time    `json:"created_at"               db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"               db:"updated_at"`
	LastSyncedAt *time.Time   `json:"last_synced_at,omitempty" db:"last_synced_at"`
}

// UpsertCourtParams carries the normalized fields written by the court pipeline.
// Upserts are keyed on ExternalID; the row id and timestamps are store-managed.
type UpsertCourtParams struct {
	ExternalID   string
	Name         string
	ShortName    *string
	Slug         string
	Jurisdiction Jurisdiction
	CourtType    *string
	URL          *string
}

// Validate checks the fields required for a court upsert.
func (p *UpsertCourtParams) Validate() error {
	if strings.TrimSpace(p.ExternalID) == "" {
		return errors.New("external id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(p.Slug) == "" {
		return errors.New("slug is required")
	}
	if !p.Jurisdiction.Valid() {
		return fmt.Errorf("invalid jurisdiction: %q", p.Jurisdiction)
	}
	return nil
}
