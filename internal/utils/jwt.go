package utils // package utils provides helpers for tokens, passwords and document numbers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "typ" claim.  An access token can never be
// used as a confirmation link and vice versa.
const (
	TypeAccess  = "access"
	TypeConfirm = "confirm"
	TypeReset   = "reset"
)

var ErrInvalidToken = errors.New("invalid token")

// AccessToken is a signed JWT together with its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is the raw opaque token handed to the client.  Only its
// SHA-256 hash is persisted.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// AccessClaims is what the identity middleware needs from an access token.
type AccessClaims struct {
	Subject string
	Role    string
	Email   string
}

// TenantID parses the subject as a tenant id.
func (c AccessClaims) TenantID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// NewAccessToken signs an HS256 access token for subject with the given
// role.  subject is the tenant id for tenants and "admin" for the
// administrator.
func NewAccessToken(secret, subject, role, email string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":   subject,
		"role":  role,
		"email": email,
		"typ":   TypeAccess,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature, expiry and type of an access token.
func ParseAccessToken(secret, raw string) (AccessClaims, error) {
	mc, err := parse(secret, raw, TypeAccess)
	if err != nil {
		return AccessClaims{}, err
	}
	sub, _ := mc["sub"].(string)
	role, _ := mc["role"].(string)
	email, _ := mc["email"].(string)
	if sub == "" || role == "" {
		return AccessClaims{}, ErrInvalidToken
	}
	return AccessClaims{Subject: sub, Role: role, Email: email}, nil
}

// NewPurposeToken signs a short-lived token binding email to one purpose
// (TypeConfirm or TypeReset).
func NewPurposeToken(secret, purpose, email string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": email,
		"typ": purpose,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParsePurposeToken returns the e-mail bound to a purpose token.
func ParsePurposeToken(secret, purpose, raw string) (string, error) {
	mc, err := parse(secret, raw, purpose)
	if err != nil {
		return "", err
	}
	email, _ := mc["sub"].(string)
	if email == "" {
		return "", ErrInvalidToken
	}
	return email, nil
}

func parse(secret, raw, typ string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if got, _ := mc["typ"].(string); got != typ {
		return nil, ErrInvalidToken
	}
	return mc, nil
}

// NewRefreshToken returns a random 96-char hex token valid for ttlDays.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := randomHex(48)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the hex SHA-256 of a raw refresh token.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
