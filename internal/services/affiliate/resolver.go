package affiliate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/ticketwatch/backend/internal/models"
	"gorm.io/gorm"
)

// Resolver maps a raw referral token to the referring partner profile
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a new attribution resolver
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve looks up the partner a token refers to. The token is matched
// case-insensitively against referral codes; a UUID-shaped token that
// matches no code falls back to a primary-id lookup, which handles the
// legacy encoding where the raw partner id was handed out as the
// token. A token that matches nothing resolves to (nil, nil) - a
// dangling token is a warning for operators, never a failure of the
// payment flow.
func (r *Resolver) Resolve(ctx context.Context, rawToken string, payer *models.Profile) (*models.Profile, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, nil
	}

	var partner models.Profile
	err := r.db.WithContext(ctx).
		Where("LOWER(referral_code) = LOWER(?)", token).
		First(&partner).Error
	if err == nil {
		return &partner, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up referral code: %w", err)
	}

	if id, parseErr := uuid.Parse(token); parseErr == nil {
		err = r.db.WithContext(ctx).First(&partner, "id = ?", id).Error
		if err == nil {
			return &partner, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up partner by id: %w", err)
		}
	}

	log.Printf("Dangling referral token %q for payer %s, continuing without attribution", token, payer.ID)
	return nil, nil
}
