// Package model defines domain entities for the application.
package model

import (
	"slices"
	"time"
)

// Scopes carried by staff API keys. Read covers catalog and
// circulation lookups, write covers desk operations (loans,
// reservations, returns), admin covers destructive and user
// management endpoints. Admin implies the other two.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin"
)

var ValidScopes = []string{ScopeRead, ScopeWrite, ScopeAdmin}

// Rate limit tiers. Desk keys serve a single circulation desk, branch
// keys serve a whole branch's integrations, unlimited is reserved for
// internal tooling.
const (
	TierDesk      = "desk"
	TierBranch    = "branch"
	TierUnlimited = "unlimited"
)

// RateLimitConfig is the request budget of one tier. A zero
// RequestsPerMinute means no limit.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

var TierConfigs = map[string]RateLimitConfig{
	TierDesk:      {RequestsPerMinute: 120, Burst: 20},
	TierBranch:    {RequestsPerMinute: 1200, Burst: 100},
	TierUnlimited: {RequestsPerMinute: 0, Burst: 0},
}

// APIKey is a staff credential. The plaintext key exists only at
// creation time; KeyHash is what gets stored.
type APIKey struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	KeyHash       string     `json:"-"`
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	Name          string     `json:"name,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// HasScope reports whether the key grants scope.
func (k *APIKey) HasScope(scope string) bool {
	return scopeGranted(k.Scopes, scope)
}

// GetRateLimitConfig resolves the key's tier, falling back to the
// desk tier for unknown values.
func (k *APIKey) GetRateLimitConfig() RateLimitConfig {
	if config, ok := TierConfigs[k.RateLimitTier]; ok {
		return config
	}
	return TierConfigs[TierDesk]
}

// AuthContext is the resolved identity of an authenticated request,
// attached to the request context by the auth middleware.
type AuthContext struct {
	KeyID         string
	KeyPrefix     string
	UserID        string
	Scopes        []string
	RateLimitTier string
}

// HasScope reports whether the authenticated key grants scope.
func (a *AuthContext) HasScope(scope string) bool {
	return scopeGranted(a.Scopes, scope)
}

func scopeGranted(granted []string, scope string) bool {
	return slices.Contains(granted, ScopeAdmin) || slices.Contains(granted, scope)
}

// APIKeyCreateRequest is the body of POST /api/v1/api-keys.
type APIKeyCreateRequest struct {
	Name   string   `json:"name,omitempty"`
	Scopes []string `json:"scopes"`
}

// APIKeyResponse is the secret-free view of a key used in listings.
type APIKeyResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	Revoked       bool       `json:"revoked"`
}

func (k *APIKey) ToResponse() APIKeyResponse {
	return APIKeyResponse{
		ID:            k.ID,
		Name:          k.Name,
		KeyPrefix:     k.KeyPrefix,
		Scopes:        k.Scopes,
		RateLimitTier: k.RateLimitTier,
		CreatedAt:     k.CreatedAt,
		LastUsedAt:    k.LastUsedAt,
		Revoked:       k.IsRevoked(),
	}
}

// APIKeyCreateResponse carries the plaintext key. It is returned once
// and cannot be retrieved again.
type APIKeyCreateResponse struct {
	ID            string    `json:"id"`
	Key           string    `json:"key"`
	Name          string    `json:"name,omitempty"`
	KeyPrefix     string    `json:"key_prefix"`
	Scopes        []string  `json:"scopes"`
	RateLimitTier string    `json:"rate_limit_tier"`
	CreatedAt     time.Time `json:"created_at"`
}

// APIKeyRotateResponse pairs the revoked key with its replacement.
type APIKeyRotateResponse struct {
	OldKeyID        string               `json:"old_key_id"`
	OldKeyRevokedAt time.Time            `json:"old_key_revoked_at"`
	NewKey          APIKeyCreateResponse `json:"new_key"`
}
