package validation

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"mconnect-bus/models"
	"mconnect-bus/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	patternTags := map[string]*regexp.Regexp{
		"cpid":          utils.CpidPattern,
		"ocid_contract": utils.OcidContractPattern,
		"ocid_tender":   utils.OcidTenderPattern,
		"contract_id":   utils.ContractIDPattern,
		"iso_date":      utils.DatePattern,
	}
	for tag, re := range patternTags {
		re := re
		// registration only fails on a duplicate tag name
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		})
	}

	return v
}

// Struct validates any struct value using the shared validator instance.
func Struct(v interface{}) error {
	return validate.Struct(v)
}

// Descriptors flattens a validation error into one incident descriptor
// per failing field, all carrying the given error code.
func Descriptors(code string, err error) []models.ErrorDescriptor {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []models.ErrorDescriptor{{
			Code:        code,
			Description: fmt.Sprintf("failed to resolve a required release attribute: %v", err),
		}}
	}

	out := make([]models.ErrorDescriptor, 0, len(ve))
	for _, fe := range ve {
		desc := fmt.Sprintf("failed to resolve a required release attribute: %s (%s)", fe.Namespace(), fe.Tag())
		if fe.Value() != nil && fe.Value() != "" {
			desc = fmt.Sprintf("%s. Value is - %v", desc, fe.Value())
		}
		out = append(out, models.ErrorDescriptor{Code: code, Description: desc})
	}

	return out
}

// StatusMessage checks an outbound treasury status notification against
// the message schema, including the status-specific regData rule:
// approving and clarification notifications must carry registration
// data, a rejection must not. A nil result means the message is valid.
func StatusMessage(msg *models.Out) []models.ErrorDescriptor {
	const code = "ER-3.11.2.9"

	var descs []models.ErrorDescriptor
	if err := validate.Struct(msg); err != nil {
		descs = append(descs, Descriptors(code, err)...)
	}

	if msg.Data.Verification == nil {
		return append(descs, models.ErrorDescriptor{
			Code:        code,
			Description: "field \"verification\" is required for treasury status notifications",
		})
	}
	if msg.Data.DateMet == "" {
		descs = append(descs, models.ErrorDescriptor{
			Code:        code,
			Description: "field \"dateMet\" is required for treasury status notifications",
		})
	}

	switch msg.Data.Verification.Value {
	case "3004", "3005":
		if msg.Data.RegData == nil {
			descs = append(descs, models.ErrorDescriptor{
				Code:        code,
				Description: fmt.Sprintf("field \"regData\" is required for status code %s", msg.Data.Verification.Value),
			})
		}
	default:
		if msg.Data.RegData != nil {
			descs = append(descs, models.ErrorDescriptor{
				Code:        code,
				Description: "field \"regData\" must be present only for status codes 3004 and 3005",
			})
		}
	}

	return descs
}
