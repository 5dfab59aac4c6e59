package models

import "time"

// RegistrationSummary is the read model returned by the list and lookup
// endpoints. Every key is always present in the JSON encoding; values may be
// empty. Only lienRegistrationType is conditional: it appears exactly when
// the description is "REGISTER NEW UNIT".
type RegistrationSummary struct {
	MHRNumber               string    `json:"mhrNumber"`
	RegistrationDescription string    `json:"registrationDescription"`
	StatusType              string    `json:"statusType"`
	CreateDateTime          time.Time `json:"createDateTime"`
	Username                string    `json:"username"`
	SubmittingParty         Party     `json:"submittingParty"`
	ClientReferenceID       string    `json:"clientReferenceId"`
	OwnerNames              []string  `json:"ownerNames"`
	Path                    string    `json:"path"`
	LienRegistrationType    *string   `json:"lienRegistrationType,omitempty"`
}

// RegistrationPathPrefix locates the full-record retrieval resource for a
// summary's path field.
const RegistrationPathPrefix = "/api/v1/registrations/"

// Summarize projects a persisted registration into its summary shape. It is
// a pure mapping and total over the required keys.
func Summarize(reg *Registration) RegistrationSummary {
	summary := RegistrationSummary{
		MHRNumber:               reg.MHRNumber,
		RegistrationDescription: reg.RegistrationType.Description(),
		StatusType:              string(reg.Status),
		CreateDateTime:          reg.CreatedAt,
		Username:                reg.Username,
		SubmittingParty:         reg.SubmittingParty,
		ClientReferenceID:       reg.ClientReferenceID,
		OwnerNames:              reg.OwnerNames(),
		Path:                    RegistrationPathPrefix + reg.MHRNumber,
	}
	if reg.RegistrationType == TypeManufacturedHome {
		lien := reg.LienType
		summary.LienRegistrationType = &lien
	}
	return summary
}
