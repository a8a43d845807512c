package auth

import (
	"crypto/rsa"
	"errors"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is what a verified token tells us about the caller.
type Identity struct {
	UserID     string
	FullName   string
	Email      string
	ProfilePic string
}

type JWTValidator struct {
	alg    string
	pub    *rsa.PublicKey
	secret []byte
}

// NewRSAValidator verifies RS256 tokens against the PEM public key at path.
func NewRSAValidator(path string) (*JWTValidator, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(b)
	if err != nil {
		return nil, err
	}
	return &JWTValidator{alg: "RS256", pub: pub}, nil
}

func NewHMACValidator(secret string) *JWTValidator {
	return &JWTValidator{alg: "HS256", secret: []byte(secret)}
}

func (j *JWTValidator) key(*jwt.Token) (interface{}, error) {
	if j.alg == "RS256" {
		return j.pub, nil
	}
	return j.secret, nil
}

// Validate checks signature and expiry and returns the caller's identity. The user id is
// read from "sub", then "user_id", then "userId".
func (j *JWTValidator) Validate(tokenStr string) (*Identity, error) {
	tok, err := jwt.Parse(tokenStr, j.key, jwt.WithValidMethods([]string{j.alg}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	id := &Identity{
		UserID:     firstString(claims, "sub", "user_id", "userId"),
		FullName:   firstString(claims, "name", "full_name", "fullName"),
		Email:      firstString(claims, "email"),
		ProfilePic: firstString(claims, "profile_pic", "profilePic"),
	}
	if id.UserID == "" {
		return nil, ErrInvalidToken
	}
	return id, nil
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func ParseBearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header empty")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}
