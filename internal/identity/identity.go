// Package identity abstracts the platform's authentication layer. This
// subsystem never verifies credentials; it receives a verified caller from an
// upstream gate and only cares about the user id and the platform-admin flag.
package identity

import (
	"context"

	"learnhub-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Caller is the resolved identity attached to every request.
type Caller struct {
	UserID        uuid.UUID
	PlatformAdmin bool
}

// Gate resolves an opaque principal (whatever the transport carries) to a
// Caller. Injected into the router so tests can substitute it.
type Gate interface {
	Resolve(ctx context.Context, principal string) (*Caller, error)
}

// DBGate trusts the principal string as a user id already verified upstream
// (e.g. by an API gateway) and loads the platform-admin flag from storage.
type DBGate struct {
	DB *gorm.DB
}

func (g *DBGate) Resolve(ctx context.Context, principal string) (*Caller, error) {
	userID, err := uuid.Parse(principal)
	if err != nil {
		return nil, err
	}
	var user domain.User
	if err := g.DB.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &Caller{UserID: user.UserID, PlatformAdmin: user.PlatformAdmin}, nil
}

// StaticGate resolves every listed principal to a fixed caller. Test helper.
type StaticGate struct {
	Callers map[string]Caller
}

func (g *StaticGate) Resolve(ctx context.Context, principal string) (*Caller, error) {
	caller, ok := g.Callers[principal]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &caller, nil
}
