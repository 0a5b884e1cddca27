package simplepublish

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// SlugScope bounds where a content slug must be unique. When OrganizationID
// is set the scope is the organization alone; otherwise it is the creator's
// personal content.
type SlugScope struct {
	CreatorID      string
	OrganizationID *uuid.UUID
}

// ScopeFor builds the slug scope for a creator and optional organization.
func ScopeFor(creatorID string, orgID *uuid.UUID) SlugScope {
	if orgID != nil {
		return SlugScope{OrganizationID: orgID}
	}
	return SlugScope{CreatorID: creatorID}
}

// IsOrganization reports whether the scope is an organization scope.
func (s SlugScope) IsOrganization() bool {
	return s.OrganizationID != nil
}

// Contains reports whether a live content row falls inside the scope.
func (s SlugScope) Contains(c *Content) bool {
	if s.OrganizationID != nil {
		return c.OrganizationID != nil && *c.OrganizationID == *s.OrganizationID
	}
	return c.OrganizationID == nil && c.CreatorID == s.CreatorID
}

func (s SlugScope) String() string {
	if s.OrganizationID != nil {
		return "organization:" + s.OrganizationID.String()
	}
	return "creator:" + s.CreatorID
}

// NormalizeOrganizationSlug trims and lowercases an organization slug.
// Organization slugs compare case-insensitively.
func NormalizeOrganizationSlug(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsValidSlug reports whether s is a URL-safe slug.
func IsValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// MaxSlugLength is the widest slug the store accepts.
const MaxSlugLength = 100

// suffixedSlug returns slug with a numeric suffix, e.g. intro-2, shortening
// slug so the result stays within MaxSlugLength.
func suffixedSlug(slug string, n int) string {
	suffix := fmt.Sprintf("-%d", n)
	if len(slug)+len(suffix) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength-len(suffix)], "-")
	}
	return slug + suffix
}
