package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Required fails for blank strings.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "field is required"},
	}
}

// MaxLen fails when value is longer than max runes.
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters long", max)},
	}
}

// Matches fails when value does not match the precompiled pattern.
// Empty values pass; combine with Required to reject them.
func Matches(field, value string, re *regexp.Regexp, description string) Rule {
	return Rule{
		Check: func() bool { return value == "" || re.MatchString(value) },
		Error: ValidationError{Field: field, Message: "must match " + description},
	}
}

// Check wraps an arbitrary predicate into a rule.
func Check(field string, ok bool, message string) Rule {
	return Rule{
		Check: func() bool { return ok },
		Error: ValidationError{Field: field, Message: message},
	}
}

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Email fails when value is not a plain address such as "user@example.com".
// Empty values pass.
func Email(field, value string) Rule {
	return Matches(field, value, emailRe, "an email address")
}
