package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const userID = "aaaaaaaaaaaaaaaaaaaaaaaa"

func hsToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestHMACValidator(t *testing.T) {
	v := NewHMACValidator("secret")
	exp := time.Now().Add(time.Hour).Unix()

	t.Run("should read identity claims", func(t *testing.T) {
		req := require.New(t)
		id, err := v.Validate(hsToken(t, "secret", jwt.MapClaims{"sub": userID, "name": "Alice", "profile_pic": "p.png", "exp": exp}))
		req.NoError(err)
		req.Equal(&Identity{UserID: userID, FullName: "Alice", ProfilePic: "p.png"}, id)
	})

	t.Run("should fall back to user_id", func(t *testing.T) {
		id, err := v.Validate(hsToken(t, "secret", jwt.MapClaims{"user_id": userID, "exp": exp}))
		require.NoError(t, err)
		require.Equal(t, userID, id.UserID)
	})

	t.Run("should reject bad tokens", func(t *testing.T) {
		for name, tok := range map[string]string{
			"wrong secret": hsToken(t, "other", jwt.MapClaims{"sub": userID, "exp": exp}),
			"expired":      hsToken(t, "secret", jwt.MapClaims{"sub": userID, "exp": time.Now().Add(-time.Minute).Unix()}),
			"no expiry":    hsToken(t, "secret", jwt.MapClaims{"sub": userID}),
			"no subject":   hsToken(t, "secret", jwt.MapClaims{"exp": exp}),
			"garbage":      "a.b.c",
		} {
			_, err := v.Validate(tok)
			require.Error(t, err, name)
		}
	})
}

func TestRSAValidator(t *testing.T) {
	req := require.New(t)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	req.NoError(err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	req.NoError(err)
	path := filepath.Join(t.TempDir(), "pub.pem")
	req.NoError(os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))

	v, err := NewRSAValidator(path)
	req.NoError(err)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"sub": userID, "exp": time.Now().Add(time.Hour).Unix()}).SignedString(key)
	req.NoError(err)
	id, err := v.Validate(tok)
	req.NoError(err)
	req.Equal(userID, id.UserID)

	// HS256 tokens are refused by an RS256 validator
	_, err = v.Validate(hsToken(t, "secret", jwt.MapClaims{"sub": userID, "exp": time.Now().Add(time.Hour).Unix()}))
	req.Error(err)
}

func TestParseBearerToken(t *testing.T) {
	req := require.New(t)
	tok, err := ParseBearerToken("Bearer abc")
	req.NoError(err)
	req.Equal("abc", tok)

	for _, h := range []string{"", "abc", "Basic abc", "Bearer "} {
		_, err := ParseBearerToken(h)
		req.Error(err, h)
	}
}
