package room

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Auto-generated slugs end in "-id-<hex>". Client-supplied slugs must
// never collide with that namespace.
var reservedSlugRe = regexp.MustCompile(`-id-[0-9a-f]+$`)

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases the title and collapses every run of other
// characters into a single hyphen.
func Slugify(title string) string {
	s := nonSlugRe.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

// NewSlug derives a unique slug from a title by appending a random hex
// suffix in the reserved namespace.
func NewSlug(title string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return Slugify(title) + "-id-" + hex
}

// IsReservedSlug reports whether a slug sits in the auto-generated
// namespace.
func IsReservedSlug(slug string) bool {
	return reservedSlugRe.MatchString(slug)
}
