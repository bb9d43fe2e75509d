package service

import (
	"context"
	"regexp"

	"groupgate/internal/domain"
	"groupgate/internal/logger"
	"groupgate/internal/repository"
)

// codePattern matches a plausible verification code embedded in free
// text: an alphanumeric token of 8 to 20 characters.
var codePattern = regexp.MustCompile(`\b[A-Za-z0-9]{8,20}\b`)

// ExtractCode returns the first plausible code token in comment. Pure;
// extraction never touches the store.
func ExtractCode(comment string) (string, bool) {
	code := codePattern.FindString(comment)
	if code == "" {
		return "", false
	}
	return code, true
}

type verifier struct {
	codeRepo repository.CodeRepository
}

func NewVerifier(codeRepo repository.CodeRepository) Verifier {
	return &verifier{codeRepo: codeRepo}
}

func (v *verifier) Verify(ctx context.Context, groupID, applicantID, comment string) domain.VerifyOutcome {
	if comment == "" {
		return domain.VerifyOutcome{Status: domain.VerifyRejected, Reason: "no code provided"}
	}

	code, ok := ExtractCode(comment)
	if !ok {
		return domain.VerifyOutcome{Status: domain.VerifyRejected, Reason: "no valid code found"}
	}

	result, err := v.codeRepo.TryRedeem(ctx, groupID, code, applicantID)
	switch result {
	case domain.RedeemRedeemed:
		return domain.VerifyOutcome{Status: domain.VerifyApproved}
	case domain.RedeemAlreadyUsed:
		return domain.VerifyOutcome{Status: domain.VerifyRejected, Reason: "code already used"}
	case domain.RedeemExpired:
		return domain.VerifyOutcome{Status: domain.VerifyRejected, Reason: "code expired"}
	case domain.RedeemNotFound:
		return domain.VerifyOutcome{Status: domain.VerifyRejected, Reason: "code invalid"}
	default:
		// Store unreachable: the code's validity is unknown, which is
		// not the same thing as invalid.
		logger.Error("Code store unavailable during verification",
			"group_id", groupID, "applicant_id", applicantID, "error", err)
		return domain.VerifyOutcome{Status: domain.VerifyUnavailable}
	}
}
