package reports

import (
	"fmt"
	"strings"

	"github.com/phishguard/phishguard-api/internal/pkg/validator"
	errs "github.com/phishguard/phishguard-api/pkg/errors"
)

// ValidateSubmitRequest checks the target format against the declared
// type. Binding tags cover presence and lengths; format rules live here.
func ValidateSubmitRequest(req *SubmitRequest) error {
	req.TargetValue = strings.TrimSpace(req.TargetValue)
	req.Description = strings.TrimSpace(req.Description)
	req.EvidenceRef = strings.TrimSpace(req.EvidenceRef)

	switch req.Type {
	case TypeURL:
		if !validator.IsValidURL(req.TargetValue) {
			return fmt.Errorf("%w: target is not a valid URL", errs.ErrValidation)
		}
	case TypeWallet:
		if !validator.IsValidWallet(req.TargetValue) {
			return fmt.Errorf("%w: target is not a valid wallet address", errs.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown report type %q", errs.ErrValidation, req.Type)
	}

	if req.EvidenceRef != "" && !validator.IsValidContentHash(req.EvidenceRef) {
		return fmt.Errorf("%w: evidenceRef is not a valid content hash", errs.ErrValidation)
	}
	return nil
}
