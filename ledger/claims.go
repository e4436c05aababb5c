package ledger

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/amonks/ledger/internal/ids"
)

// ClaimTTL is how long a claim stays valid after it is granted.
const ClaimTTL = 2 * time.Hour

// Claim is an advisory editing lease on one item.
type Claim struct {
	ItemID            string `json:"item_id" yaml:"item_id"`
	Token             string `json:"token" yaml:"token"`
	GrantedAtMs       int64  `json:"granted_at_ms" yaml:"granted_at_ms"`
	StatusBeforeClaim Status `json:"status_before_claim" yaml:"status_before_claim"`
}

// GrantedAt returns the grant time.
func (c Claim) GrantedAt() time.Time {
	return time.UnixMilli(c.GrantedAtMs)
}

// Expired reports whether more than ttl has passed since the grant.
func (c Claim) Expired(now time.Time, ttl time.Duration) bool {
	return now.UnixMilli()-c.GrantedAtMs > ttl.Milliseconds()
}

// Ref parses the claimed item's reference.
func (c Claim) Ref() (Ref, error) {
	return ParseRef(c.ItemID)
}

// Registry is the persisted claim state: claims by item key and the
// reverse token index.
type Registry struct {
	Claims map[string]Claim  `json:"claims"`
	Tokens map[string]string `json:"tokens"`
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		Claims: make(map[string]Claim),
		Tokens: make(map[string]string),
	}
}

func (r *Registry) normalize() *Registry {
	if r == nil {
		return NewRegistry()
	}
	if r.Claims == nil {
		r.Claims = make(map[string]Claim)
	}
	if r.Tokens == nil {
		r.Tokens = make(map[string]string)
	}
	return r
}

// Clone returns a copy of the registry.
func (r *Registry) Clone() *Registry {
	return &Registry{
		Claims: maps.Clone(r.Claims),
		Tokens: maps.Clone(r.Tokens),
	}
}

// List returns every claim ordered by grant time, then item key.
func (r *Registry) List() []Claim {
	claims := slices.Collect(maps.Values(r.Claims))
	slices.SortFunc(claims, func(a, b Claim) int {
		if a.GrantedAtMs != b.GrantedAtMs {
			if a.GrantedAtMs < b.GrantedAtMs {
				return -1
			}
			return 1
		}
		if a.ItemID < b.ItemID {
			return -1
		}
		if a.ItemID > b.ItemID {
			return 1
		}
		return 0
	})
	return claims
}

func (r *Registry) put(claim Claim) {
	r.Claims[claim.ItemID] = claim
	r.Tokens[claim.Token] = claim.ItemID
}

func (r *Registry) remove(claim Claim) {
	delete(r.Claims, claim.ItemID)
	if r.Tokens[claim.Token] == claim.ItemID {
		delete(r.Tokens, claim.Token)
	}
}

// leases is the single authority over the claimed status and the claim TTL.
type leases struct {
	ttl    time.Duration
	now    func() time.Time
	token  func() string
	logger *slog.Logger
}

const (
	tokenLength   = 4
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewLeaseToken draws a random lease token.
func NewLeaseToken() string {
	return ids.Token(tokenLength, tokenAlphabet)
}

func (m leases) expired(claim Claim) bool {
	return claim.Expired(m.now(), m.ttl)
}

// grant claims the item named by ref. A stale claim on the item is
// replaced; the new claim inherits its status-before-claim, since the item
// still shows claimed.
func (m leases) grant(l *Ledger, r *Registry, ref Ref) (Claim, error) {
	item, ok := l.Lookup(ref)
	if !ok {
		return Claim{}, notFoundError(ref)
	}

	key := ref.Key()
	before := item.ItemStatus()
	if existing, ok := r.Claims[key]; ok {
		if !m.expired(existing) {
			return Claim{}, &AlreadyClaimedError{ItemID: key, Token: existing.Token}
		}
		m.logger.Info("replacing expired claim", "item", key, "token", existing.Token)
		if before == StatusClaimed {
			before = existing.StatusBeforeClaim
		}
		r.remove(existing)
	}
	if before == StatusClaimed {
		// Claimed without a registry entry: nothing to restore to.
		before = StatusOpen
	}

	token := m.token()
	for attempts := 0; r.Tokens[token] != ""; attempts++ {
		if attempts > 1000 {
			return Claim{}, fmt.Errorf("generate lease token: too many collisions")
		}
		token = m.token()
	}

	claim := Claim{
		ItemID:            key,
		Token:             token,
		GrantedAtMs:       m.now().UnixMilli(),
		StatusBeforeClaim: before,
	}
	r.put(claim)
	l.setStatus(ref, StatusClaimed)
	return claim, nil
}

// release ends the claim holding token and restores the item's status.
// An expired claim that has not been swept can still be released.
func (m leases) release(l *Ledger, r *Registry, token string) (Claim, error) {
	key, ok := r.Tokens[token]
	if !ok {
		return Claim{}, fmt.Errorf("%w: %q", ErrInvalidKey, token)
	}
	claim, ok := r.Claims[key]
	if !ok || claim.Token != token {
		delete(r.Tokens, token)
		return Claim{}, fmt.Errorf("%w: %q", ErrInvalidKey, token)
	}
	m.restore(l, claim)
	r.remove(claim)
	return claim, nil
}

// restore puts back the status captured at grant time if the item is still
// claimed.
func (m leases) restore(l *Ledger, claim Claim) {
	ref, err := claim.Ref()
	if err != nil {
		return
	}
	if status, ok := l.status(ref); ok && status == StatusClaimed {
		l.setStatus(ref, claim.StatusBeforeClaim)
	}
}

// sweep releases every expired claim. It is idempotent.
func (m leases) sweep(l *Ledger, r *Registry) []Claim {
	var swept []Claim
	for _, claim := range r.List() {
		if !m.expired(claim) {
			continue
		}
		m.restore(l, claim)
		r.remove(claim)
		m.logger.Info("swept expired claim", "item", claim.ItemID, "token", claim.Token)
		swept = append(swept, claim)
	}
	return swept
}

// validate checks that token holds a live claim on ref.
func (m leases) validate(r *Registry, ref Ref, token string) (Claim, error) {
	claim, ok := r.Claims[ref.Key()]
	if !ok {
		return Claim{}, fmt.Errorf("%w: %s", ErrNotClaimed, ref)
	}
	if claim.Token != token {
		return Claim{}, fmt.Errorf("%w: %q does not hold %s", ErrInvalidKey, token, ref)
	}
	if m.expired(claim) {
		return Claim{}, fmt.Errorf("%w: %s (granted %s)", ErrClaimExpired, ref, claim.GrantedAt().Format(time.RFC3339))
	}
	return claim, nil
}
