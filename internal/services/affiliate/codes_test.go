package affiliate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ticketwatch/backend/internal/models"
)

func TestGenerateReferralCode(t *testing.T) {
	code := GenerateReferralCode("Max Muster")
	assert.True(t, strings.HasPrefix(code, "MAX-MUSTER-"), "got %q", code)
	assert.Len(t, code, len("MAX-MUSTER-")+4)

	// Umlauts and symbols are transliterated away.
	code = GenerateReferralCode("Jürgen Größe!")
	assert.True(t, strings.HasPrefix(code, "JURGEN-GROSSE-"), "got %q", code)

	// An empty name still yields a usable code.
	code = GenerateReferralCode("")
	assert.True(t, strings.HasPrefix(code, "PARTNER-"), "got %q", code)
}

func TestEnsureAffiliate(t *testing.T) {
	db := setupTestDB(t)

	profile := createProfile(t, db, &models.Profile{
		Email:     "max@x.com",
		FirstName: "Max",
		LastName:  "Muster",
		Role:      models.RoleCustomer,
	})

	require.NoError(t, EnsureAffiliate(context.Background(), db, profile))
	assert.Equal(t, models.RoleAffiliate, profile.Role)
	require.NotNil(t, profile.ReferralCode)
	first := *profile.ReferralCode

	// Calling again keeps the existing code.
	require.NoError(t, EnsureAffiliate(context.Background(), db, profile))
	assert.Equal(t, first, *profile.ReferralCode)

	// Admins keep their role.
	admin := createProfile(t, db, &models.Profile{Email: "admin@x.com", Role: models.RoleAdmin})
	require.NoError(t, EnsureAffiliate(context.Background(), db, admin))
	assert.Equal(t, models.RoleAdmin, admin.Role)
}
