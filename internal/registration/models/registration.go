// Package models holds the manufactured home registration entities and the
// read-model summaries projected from them.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RegistrationType identifies the kind of registration filed against a home.
type RegistrationType string

const (
	TypeManufacturedHome RegistrationType = "MHREG"
	TypeTransfer         RegistrationType = "TRANS"
	TypeExemptionRes     RegistrationType = "EXEMPTION_RES"
	TypeExemptionNonRes  RegistrationType = "EXEMPTION_NON_RES"
	TypePermit           RegistrationType = "PERMIT"
)

var registrationDescriptions = map[RegistrationType]string{
	TypeManufacturedHome: "REGISTER NEW UNIT",
	TypeTransfer:         "TRANSFER DUE TO SALE OR GIFT",
	TypeExemptionRes:     "RESIDENTIAL EXEMPTION",
	TypeExemptionNonRes:  "NON-RESIDENTIAL EXEMPTION",
	TypePermit:           "TRANSPORT PERMIT",
}

// Description returns the human-readable label for the registration type.
func (t RegistrationType) Description() string {
	return registrationDescriptions[t]
}

// IsValid reports whether the type is one of the known registration types.
func (t RegistrationType) IsValid() bool {
	_, ok := registrationDescriptions[t]
	return ok
}

// StatusType is the lifecycle status of a registration.
type StatusType string

const (
	StatusActive     StatusType = "ACTIVE"
	StatusExempt     StatusType = "EXEMPT"
	StatusCancelled  StatusType = "CANCELLED"
	StatusHistorical StatusType = "HISTORICAL"
)

// Party is a named party on a registration: either a business or an
// individual, never both.
type Party struct {
	BusinessName string `json:"businessName,omitempty"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
}

// MatchesName reports whether value matches the business, last, or first name
// case-insensitively, by equality or substring. First match wins.
func (p Party) MatchesName(value string) bool {
	if value == "" {
		return false
	}
	v := strings.ToLower(value)
	for _, name := range []string{p.BusinessName, p.FirstName, p.LastName} {
		if name == "" {
			continue
		}
		if strings.Contains(strings.ToLower(name), v) {
			return true
		}
	}
	return false
}

// Owner is a registered owner of the home.
type Owner struct {
	BusinessName string `json:"businessName,omitempty"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
}

// FullName renders the owner the way summaries list owner names:
// business name as-is, individuals as "LAST, FIRST".
func (o Owner) FullName() string {
	if o.BusinessName != "" {
		return o.BusinessName
	}
	if o.FirstName == "" {
		return o.LastName
	}
	return o.LastName + ", " + o.FirstName
}

// MatchesName applies the same match rule as Party.MatchesName.
func (o Owner) MatchesName(value string) bool {
	return Party{BusinessName: o.BusinessName, FirstName: o.FirstName, LastName: o.LastName}.MatchesName(value)
}

// Registration is the persisted registration record. The store is its sole
// writer after creation; the query engine reads it only.
type Registration struct {
	ID                uuid.UUID
	MHRNumber         string
	AccountID         string
	DocumentID        string
	RegistrationType  RegistrationType
	Status            StatusType
	ClientReferenceID string
	Username          string
	SubmittingParty   Party
	Owners            []Owner
	LienType          string
	CreatedAt         time.Time
}

// OwnerNames lists the rendered owner names. Always non-nil so the summary
// contract (key present, possibly empty collection) holds.
func (r *Registration) OwnerNames() []string {
	names := make([]string, 0, len(r.Owners))
	for _, o := range r.Owners {
		names = append(names, o.FullName())
	}
	return names
}

// RegistrationRequest is the create payload accepted on POST /registrations.
// Structural validation lives in the schema package.
type RegistrationRequest struct {
	RegistrationType  string  `json:"registrationType"`
	DocumentID        string  `json:"documentId,omitempty"`
	ClientReferenceID string  `json:"clientReferenceId,omitempty"`
	SubmittingParty   *Party  `json:"submittingParty,omitempty"`
	Owners            []Owner `json:"owners,omitempty"`
	LienType          string  `json:"lienRegistrationType,omitempty"`
}
