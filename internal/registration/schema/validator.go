// Package schema performs structural validation of registration payloads
// before any persistence is attempted.
package schema

import (
	"github.com/asaskevich/govalidator"

	"mhreg/internal/registration/models"
	dErrors "mhreg/pkg/domain-errors"
)

// ValidateCreate checks a create payload. staff callers must supply the
// registry document identifier assigned to the filing.
func ValidateCreate(req *models.RegistrationRequest, staff bool) error {
	if req == nil {
		return dErrors.New(dErrors.CodeValidation, "request body is required")
	}
	if req.SubmittingParty == nil {
		return dErrors.New(dErrors.CodeValidation, "submittingParty is required")
	}
	if !hasName(*req.SubmittingParty) {
		return dErrors.New(dErrors.CodeValidation, "submittingParty requires a business or last name")
	}
	if req.RegistrationType != "" && !models.RegistrationType(req.RegistrationType).IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid registrationType %q", req.RegistrationType)
	}
	regType := models.RegistrationType(req.RegistrationType)
	if (req.RegistrationType == "" || regType == models.TypeManufacturedHome) && len(req.Owners) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one owner is required to register a new unit")
	}
	for _, owner := range req.Owners {
		if owner.BusinessName == "" && owner.LastName == "" {
			return dErrors.New(dErrors.CodeValidation, "owner requires a business or last name")
		}
	}
	if req.ClientReferenceID != "" && !govalidator.StringLength(req.ClientReferenceID, "1", "50") {
		return dErrors.New(dErrors.CodeValidation, "clientReferenceId exceeds 50 characters")
	}
	if staff {
		if req.DocumentID == "" {
			return dErrors.New(dErrors.CodeValidation, "documentId is required for staff registrations")
		}
		if !govalidator.IsNumeric(req.DocumentID) || !govalidator.StringLength(req.DocumentID, "8", "8") {
			return dErrors.New(dErrors.CodeValidation, "documentId must be an 8 digit number")
		}
	}
	return nil
}

func hasName(p models.Party) bool {
	return p.BusinessName != "" || p.LastName != ""
}
