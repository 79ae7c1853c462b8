package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// SlugPattern is lowercase alphanumerics separated by single dashes
	SlugPattern = `^[a-z0-9]+(?:-[a-z0-9]+)*$`

	// NameMaxLength bounds titles and names
	NameMaxLength = 200
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	Slug *regexp.Regexp
}{
	Slug: regexp.MustCompile(SlugPattern),
}

// IsValidSlug reports whether s is a well-formed establishment slug
func IsValidSlug(s string) bool {
	return CompiledPatterns.Slug.MatchString(s)
}

// Slugify turns a display name into a slug candidate
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// RegisterCustomRules adds the application tags to a validator instance
func RegisterCustomRules(v *validator.Validate) error {
	return v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return IsValidSlug(fl.Field().String())
	})
}
