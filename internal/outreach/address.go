package outreach

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// ValidAddress reports whether the contact address passes a strict
// syntactic email check. Enrichment output is model-produced text, so
// anything that is not clearly an address is rejected.
func ValidAddress(email string) bool {
	return validate.Var(email, "required,email") == nil
}
