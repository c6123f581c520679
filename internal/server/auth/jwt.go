// Package auth reads what it can from origin access tokens. The origin owns
// the signing key, so claims are read without verification and are only
// used for display and early expiry warnings.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/casely/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is the subset of registered claims we surface.
type TokenInfo struct {
	Subject   string
	ExpiresAt *time.Time
}

// Expired reports whether the token carries an exp claim before now.
func (i TokenInfo) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// InspectToken parses tokenString as a JWT without checking its signature.
// Opaque (non-JWT) tokens return ErrInvalidToken; that is not fatal for
// callers, the origin may issue either kind.
func InspectToken(tokenString string) (TokenInfo, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	info := TokenInfo{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		info.ExpiresAt = &exp
	}
	return info, nil
}
