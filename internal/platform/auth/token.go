package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

// Claims are the JWT claims the API expects. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role     core.Role `json:"role"`
	BrokerID *int64    `json:"broker_id,omitempty"`
}

// Signer issues and verifies HS256 session tokens.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret, issuer string, ttl time.Duration) (*Signer, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Signer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the given user.
func (s *Signer) Issue(userID int64, role core.Role, brokerID *int64) (string, error) {
	if userID <= 0 {
		return "", errors.New("user id is required")
	}
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", role)
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role:     role,
		BrokerID: brokerID,
	})
	return token.SignedString(s.secret)
}

// Parse verifies raw and returns the actor it names. ShowAllData is left for the
// caller to set from the request.
func (s *Signer) Parse(raw string) (core.Actor, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return core.Actor{}, fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
	}
	if !parsed.Valid {
		return core.Actor{}, fmt.Errorf("%w: invalid token", core.ErrUnauthorized)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return core.Actor{}, fmt.Errorf("%w: token subject is not a user id", core.ErrUnauthorized)
	}
	if !claims.Role.Valid() {
		return core.Actor{}, fmt.Errorf("%w: token carries unknown role %q", core.ErrUnauthorized, claims.Role)
	}
	return core.Actor{UserID: userID, Role: claims.Role, BrokerID: claims.BrokerID}, nil
}
