package users

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// MakeTenantSlug derives a URL-safe slug from an organisation name.
// Example: "Smith & Sons Fire Protection" -> "smith-and-sons-fire-protection"
func MakeTenantSlug(name string) string {
	s := slug.Make(strings.TrimSpace(name))
	if s == "" {
		s = "tenant"
	}
	return s
}

// UniqueTenantSlug appends a numeric suffix until the slug is free.
// Pass tx in so callers can run it inside their signup transaction.
func UniqueTenantSlug(tx *gorm.DB, name string) (string, error) {
	if tx == nil {
		return "", fmt.Errorf("db is nil")
	}
	base := MakeTenantSlug(name)
	candidate := base
	for i := 2; i < 1000; i++ {
		var count int64
		if err := tx.Model(&Tenant{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("could not find a free slug for %q", name)
}
