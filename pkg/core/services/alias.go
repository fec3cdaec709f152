package services

import (
	"regexp"
	"strings"

	"github.com/tinylink-io/tinylink/pkg/core/domain"
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// maxAliasLength matches the short_code column width.
const maxAliasLength = 100

// AliasValidator applies syntactic and policy checks to user-supplied
// aliases. The reserved set comes from configuration so that new route
// prefixes can be blocked without a code change.
type AliasValidator struct {
	reserved map[string]struct{}
}

func NewAliasValidator(reservedCodes []string) *AliasValidator {
	reserved := make(map[string]struct{}, len(reservedCodes))
	for _, code := range reservedCodes {
		reserved[strings.ToLower(code)] = struct{}{}
	}
	return &AliasValidator{reserved: reserved}
}

// Validate trims the alias and returns it unchanged (case preserved) as
// the candidate short code, or domain.ErrInvalidAlias.
func (v *AliasValidator) Validate(alias string) (string, error) {
	alias = strings.TrimSpace(alias)
	if len(alias) > maxAliasLength || !aliasPattern.MatchString(alias) {
		return "", domain.ErrInvalidAlias
	}
	if v.IsReserved(alias) {
		return "", domain.ErrInvalidAlias
	}
	return alias, nil
}

// IsReserved reports whether the code's lowercase form is reserved.
func (v *AliasValidator) IsReserved(code string) bool {
	_, ok := v.reserved[strings.ToLower(code)]
	return ok
}
