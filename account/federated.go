package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caasmo/farmgate/crypto"
	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/oauth2"
)

// federatedPasswordLength is the length of the random password given to
// accounts created by a provider login. It is never disclosed.
const federatedPasswordLength = 32

// BridgeStore is the part of the credential store the bridge needs.
type BridgeStore interface {
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	CreateUser(ctx context.Context, user db.User) (*db.User, error)
}

// Bridge resolves provider identities to local accounts.
type Bridge struct {
	store  BridgeStore
	logger *slog.Logger
}

func NewBridge(store BridgeStore, logger *slog.Logger) *Bridge {
	return &Bridge{store: store, logger: logger}
}

// FederatedEmail is the first address the provider vouches for, or the
// placeholder {id}@{provider}.local when it gave none.
func FederatedEmail(p oauth2.Profile) string {
	if e, ok := providerEmail(p); ok {
		return e
	}
	return NormalizeEmail(fmt.Sprintf("%s@%s.local", p.ID, p.Provider))
}

func providerEmail(p oauth2.Profile) (string, bool) {
	for _, e := range p.Emails {
		if e = NormalizeEmail(e); e != "" {
			return e, true
		}
	}
	return "", false
}

// Resolve returns the account matching the profile email, creating a
// consumer account on first login. Existing accounts are returned
// unchanged. Every failure is a *BridgeError.
func (b *Bridge) Resolve(ctx context.Context, p oauth2.Profile) (*db.User, error) {
	if p.ID == "" || p.Provider == "" {
		return nil, &BridgeError{Provider: p.Provider, Op: "profile", Err: errors.New("profile without id")}
	}
	email, fromProvider := providerEmail(p)
	if !fromProvider {
		email = FederatedEmail(p)
	}

	u, err := b.store.GetUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, db.ErrUserNotFound) {
		return nil, &BridgeError{Provider: p.Provider, Op: "lookup", Err: err}
	}

	hash, err := crypto.GenerateHash(crypto.RandomString(federatedPasswordLength, crypto.AlphanumericAlphabet))
	if err != nil {
		return nil, &BridgeError{Provider: p.Provider, Op: "hash", Err: err}
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	u, err = b.store.CreateUser(ctx, db.User{
		Name:     name,
		Email:    email,
		Password: hash,
		Role:     db.RoleConsumer,
		Status:   db.StatusActive,
		Verified: fromProvider,
		Oauth2:   true,
		Provider: p.Provider,
	})
	if errors.Is(err, db.ErrConstraintUnique) {
		// a concurrent login created it first
		u, err = b.store.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, &BridgeError{Provider: p.Provider, Op: "create", Err: err}
	}

	b.logger.Info("account created from provider login", "provider", p.Provider, "user_id", u.ID)
	return u, nil
}
