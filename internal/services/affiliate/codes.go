package affiliate

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/gosimple/slug"
	"github.com/ticketwatch/backend/internal/models"
	"gorm.io/gorm"
)

const codeSuffixCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateReferralCode builds a shareable code from a display name,
// e.g. "Max Muster" -> "MAX-MUSTER-7K3Q". Codes are matched
// case-insensitively, so the stored casing is cosmetic.
func GenerateReferralCode(name string) string {
	base := strings.ToUpper(slug.Make(name))
	if base == "" {
		base = "PARTNER"
	}
	if len(base) > 20 {
		base = base[:20]
	}

	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = codeSuffixCharset[rand.Intn(len(codeSuffixCharset))]
	}

	return fmt.Sprintf("%s-%s", base, string(suffix))
}

// EnsureAffiliate upgrades a profile to the affiliate role and assigns
// a unique referral code if it has none. Safe to call on a profile
// that is already an affiliate.
func EnsureAffiliate(ctx context.Context, db *gorm.DB, profile *models.Profile) error {
	if profile.Role == models.RoleCustomer {
		profile.Role = models.RoleAffiliate
	}

	if profile.ReferralCode == nil || *profile.ReferralCode == "" {
		name := strings.TrimSpace(profile.FirstName + " " + profile.LastName)
		if name == "" {
			name = strings.SplitN(profile.Email, "@", 2)[0]
		}

		// Retry on the unlikely event of a code collision; the unique
		// index on referral_code is the arbiter.
		for attempt := 0; attempt < 5; attempt++ {
			code := GenerateReferralCode(name)
			profile.ReferralCode = &code

			err := db.WithContext(ctx).Model(profile).
				Updates(map[string]interface{}{
					"role":          profile.Role,
					"referral_code": code,
				}).Error
			if err == nil {
				return nil
			}
			if !isUniqueViolation(err) {
				return fmt.Errorf("failed to assign referral code: %w", err)
			}
		}
		return fmt.Errorf("failed to find a free referral code for profile %s", profile.ID)
	}

	return db.WithContext(ctx).Model(profile).Update("role", profile.Role).Error
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
