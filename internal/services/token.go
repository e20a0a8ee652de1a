package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/newdaybreak/careers/types"
)

const defaultTokenTTL = 24 * time.Hour

// Identity is the authenticated caller carried by a token.
type Identity struct {
	UserID int64
	Role   string
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == types.RoleAdmin
}

type identityClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 identity tokens.
type TokenCodec struct {
	secret       []byte
	ttl          time.Duration
	acceptLegacy bool
	now          func() time.Time
}

// NewTokenCodec constructs a TokenCodec. A non-positive ttl falls back to 24h.
// acceptLegacy enables decoding of tokens that carry only a subject.
func NewTokenCodec(secret string, ttl time.Duration, acceptLegacy bool) (*TokenCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenCodec{
		secret:       []byte(secret),
		ttl:          ttl,
		acceptLegacy: acceptLegacy,
		now:          time.Now,
	}, nil
}

// Issue signs a token for the user and returns it with its expiry.
func (c *TokenCodec) Issue(user types.User) (string, time.Time, error) {
	now := c.now()
	expires := now.Add(c.ttl)
	claims := identityClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse verifies the token and returns the identity it carries. Every failure
// is reported as ErrUnauthenticated.
func (c *TokenCodec) Parse(tokenString string) (Identity, error) {
	if strings.TrimSpace(tokenString) == "" {
		return Identity{}, ErrUnauthenticated
	}

	claims := identityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	if claims.Role == "" {
		if !c.acceptLegacy {
			return Identity{}, fmt.Errorf("%w: token has no role", ErrUnauthenticated)
		}
		return legacyIdentity(claims.RegisteredClaims)
	}

	userID, err := parseSubject(claims.Subject)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: userID, Role: claims.Role}, nil
}

func parseSubject(subject string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(subject), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invalid subject", ErrUnauthenticated)
	}
	return id, nil
}
