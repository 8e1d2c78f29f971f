package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

const testSecret = "0123456789abcdef-test-secret"

func TestIssueAndParse(t *testing.T) {
	s, err := NewSigner(testSecret, "go-brokerage", time.Hour)
	require.NoError(t, err)

	brokerID := int64(7)
	raw, err := s.Issue(42, core.RoleBroker, &brokerID)
	require.NoError(t, err)

	actor, err := s.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), actor.UserID)
	assert.Equal(t, core.RoleBroker, actor.Role)
	require.NotNil(t, actor.BrokerID)
	assert.Equal(t, brokerID, *actor.BrokerID)
	assert.False(t, actor.ShowAllData)

	raw, err = s.Issue(1, core.RoleAdministrator, nil)
	require.NoError(t, err)
	actor, err = s.Parse(raw)
	require.NoError(t, err)
	assert.Nil(t, actor.BrokerID)
}

func TestParseRejects(t *testing.T) {
	s, err := NewSigner(testSecret, "go-brokerage", time.Hour)
	require.NoError(t, err)
	valid, err := s.Issue(42, core.RoleBrokerManager, nil)
	require.NoError(t, err)

	other, err := NewSigner("another-secret-entirely", "go-brokerage", time.Hour)
	require.NoError(t, err)
	forged, err := other.Issue(42, core.RoleAdministrator, nil)
	require.NoError(t, err)

	wrongIssuer, err := NewSigner(testSecret, "someone-else", time.Hour)
	require.NoError(t, err)
	foreign, err := wrongIssuer.Issue(42, core.RoleAdministrator, nil)
	require.NoError(t, err)

	unknownRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			Issuer:    "go-brokerage",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "SUPERUSER",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "go-brokerage",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: core.RoleBroker,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":       "not-a-token",
		"tampered":      valid + "x",
		"forged":        forged,
		"wrong issuer":  foreign,
		"unknown role":  unknownRole,
		"no subject":    noSubject,
		"empty":         "",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.Parse(raw)
			assert.ErrorIs(t, err, core.ErrUnauthorized)
		})
	}
}

func TestExpiredToken(t *testing.T) {
	s, err := NewSigner(testSecret, "go-brokerage", time.Minute)
	require.NoError(t, err)
	issued := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }
	raw, err := s.Issue(42, core.RoleBroker, nil)
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = s.Parse(raw)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestNewSignerValidation(t *testing.T) {
	_, err := NewSigner("short", "x", time.Hour)
	assert.Error(t, err)

	s, err := NewSigner(testSecret, "x", time.Hour)
	require.NoError(t, err)
	_, err = s.Issue(0, core.RoleBroker, nil)
	assert.Error(t, err)
	_, err = s.Issue(1, "GUEST", nil)
	assert.Error(t, err)
}
