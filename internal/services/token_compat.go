package services

import "github.com/golang-jwt/jwt/v5"

// legacyIdentity decodes tokens issued before roles were embedded, which carry
// nothing but the user id as subject. The resulting identity has no role, so
// it passes authentication but never an admin check.
func legacyIdentity(claims jwt.RegisteredClaims) (Identity, error) {
	userID, err := parseSubject(claims.Subject)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: userID}, nil
}
