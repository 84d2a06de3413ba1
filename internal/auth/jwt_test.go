package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newKeyPair(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func signToken(t *testing.T, key *ecdsa.PrivateKey, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestVerify_validToken(t *testing.T) {
	key, pubPEM := newKeyPair(t)
	v, err := NewVerifierFromPEM(pubPEM)
	require.NoError(t, err)

	token := signToken(t, key, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	subject, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "admin", subject)
}

func TestVerify_expiredToken(t *testing.T) {
	key, pubPEM := newKeyPair(t)
	v, err := NewVerifierFromPEM(pubPEM)
	require.NoError(t, err)

	token := signToken(t, key, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})

	_, err = v.Verify(token)
	require.Error(t, err)
}

func TestVerify_wrongKey(t *testing.T) {
	key, _ := newKeyPair(t)
	_, otherPEM := newKeyPair(t)

	v, err := NewVerifierFromPEM(otherPEM)
	require.NoError(t, err)

	token := signToken(t, key, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	_, err = v.Verify(token)
	require.Error(t, err)
}

func TestVerify_wrongSigningMethod(t *testing.T) {
	_, pubPEM := newKeyPair(t)
	v, err := NewVerifierFromPEM(pubPEM)
	require.NoError(t, err)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "admin",
	}).SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	_, err = v.Verify(signed)
	require.Error(t, err)
}

func TestNewVerifierFromPEM_rejectsEmptyAndGarbage(t *testing.T) {
	_, err := NewVerifierFromPEM("")
	require.Error(t, err)

	_, err = NewVerifierFromPEM("not a pem block")
	require.Error(t, err)
}
