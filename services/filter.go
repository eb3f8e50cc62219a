package services

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"catalog-linker/config"
)

// Rejection names the rule that rejected a URL.
type Rejection string

const (
	Accepted         Rejection = ""
	RejectEmpty      Rejection = "empty"
	RejectSyntax     Rejection = "syntax"
	RejectScheme     Rejection = "scheme"
	RejectSubstring  Rejection = "substring"
	RejectStartsWith Rejection = "starts"
	RejectEndsWith   Rejection = "ends"
)

// URLFilter rejects non-product and placeholder URLs. It operates on the
// scheme-stripped canonical form.
type URLFilter struct {
	rules    config.ValidityRules
	validate *validator.Validate
}

// NewURLFilter creates a filter over the given rule set.
func NewURLFilter(rules config.ValidityRules) *URLFilter {
	return &URLFilter{rules: rules, validate: validator.New()}
}

// IsValid reports whether u survives every rule.
func (f *URLFilter) IsValid(u string) bool {
	return f.Check(u) == Accepted
}

// Check evaluates the rules in order and returns the first one that
// rejects u, or Accepted.
func (f *URLFilter) Check(u string) Rejection {
	if u == "" {
		return RejectEmpty
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return RejectScheme
	}
	if !f.wellFormed("https://" + u) {
		return RejectSyntax
	}
	if strings.Contains(u, "http://") || strings.Contains(u, "https://") {
		return RejectScheme
	}
	for _, s := range f.rules.Substrings {
		if s != "" && strings.Contains(u, s) {
			return RejectSubstring
		}
	}
	for _, s := range f.rules.Starts {
		if s != "" && strings.HasPrefix(u, s) {
			return RejectStartsWith
		}
	}
	for _, s := range f.rules.Ends {
		if s != "" && strings.HasSuffix(u, s) {
			return RejectEndsWith
		}
	}
	return Accepted
}

// wellFormed requires a parseable absolute URL whose host is a fully
// qualified domain name.
func (f *URLFilter) wellFormed(full string) bool {
	if strings.ContainsAny(full, " \t\r\n") {
		return false
	}
	if err := f.validate.Var(full, "required,url"); err != nil {
		return false
	}
	parsed, err := url.Parse(full)
	if err != nil {
		return false
	}
	return f.validate.Var(parsed.Hostname(), "required,fqdn") == nil
}
