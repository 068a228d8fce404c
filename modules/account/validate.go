package account

import (
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Errors maps a field name to true when the field failed validation.
// The map is rendered next to the redisplayed form, so keys are the
// form field names plus a few flow-level markers ("match", "exists").
type Errors map[string]bool

// Valid reports whether no field failed.
func (e Errors) Valid() bool { return len(e) == 0 }

// Kind enumerates the supported field validators. Each rule carries
// its own constraint parameters; there is no reflection-driven
// dispatch.
type Kind int

const (
	KindString Kind = iota
	KindEmail
	KindPassword
	KindBool
)

// Rule binds a form field to a validator kind.
type Rule struct {
	Field  string
	Kind   Kind
	MinLen int
}

// RequiredString requires a non-empty value after trimming.
func RequiredString(field string) Rule {
	return Rule{Field: field, Kind: KindString, MinLen: 1}
}

// RequiredEmail requires a syntactically plausible email address. The
// valid value is lowercased.
func RequiredEmail(field string) Rule {
	return Rule{Field: field, Kind: KindEmail}
}

// RequiredPassword requires at least eight characters.
func RequiredPassword(field string) Rule {
	return Rule{Field: field, Kind: KindPassword, MinLen: 8}
}

// OptionalBool accepts anything; the valid value is "true" for the
// usual checkbox spellings and "false" otherwise.
func OptionalBool(field string) Rule {
	return Rule{Field: field, Kind: KindBool}
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate checks the request's form values against the rules. It
// returns the raw submitted values for redisplay, the per-field error
// map, and the normalized values of the fields that passed.
func Validate(r *http.Request, rules ...Rule) (form map[string]string, errs Errors, valid map[string]string) {
	form = make(map[string]string, len(rules))
	errs = make(Errors)
	valid = make(map[string]string, len(rules))

	for _, rule := range rules {
		raw := r.PostFormValue(rule.Field)
		form[rule.Field] = raw

		value, ok := applyRule(rule, raw)
		if ok {
			valid[rule.Field] = value
		} else {
			errs[rule.Field] = true
		}
	}
	return form, errs, valid
}

func applyRule(rule Rule, raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	switch rule.Kind {
	case KindEmail:
		if !emailPattern.MatchString(trimmed) {
			return "", false
		}
		return strings.ToLower(trimmed), true
	case KindPassword:
		if utf8.RuneCountInString(raw) < rule.MinLen {
			return "", false
		}
		return raw, true
	case KindBool:
		switch strings.ToLower(trimmed) {
		case "1", "true", "on", "yes":
			return "true", true
		default:
			return "false", true
		}
	default:
		if utf8.RuneCountInString(trimmed) < rule.MinLen {
			return "", false
		}
		return trimmed, true
	}
}
