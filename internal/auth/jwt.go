// Package auth issues and checks the tokens and password hashes used by the API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/PaulBabatuyi/campus-messaging/internal/normalize"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid token")

// JWTManager signs and validates JWT tokens used by the API. It holds a set of
// HMAC keys by key id: new tokens are signed with the active key, and tokens
// signed with any other known key keep verifying until that key is removed.
type JWTManager struct {
	keys      map[string][]byte // kid -> HMAC secret
	activeKID string            // kid used to sign new tokens
	duration  time.Duration     // how long tokens are valid
}

// Claims is the custom JWT payload (user id + email).
type Claims struct {
	UserID               string `json:"user_id"`
	Email                string `json:"email"`
	jwt.RegisteredClaims        // ExpiresAt, IssuedAt
}

// defaultKID names the single key of a manager built from one secret.
const defaultKID = "default"

// NewJWTManager returns a JWTManager with a single key.
func NewJWTManager(secretKey string, duration time.Duration) *JWTManager {
	return NewJWTManagerFromKeys(map[string]string{defaultKID: secretKey}, defaultKID, duration)
}

// NewJWTManagerFromKeys returns a JWTManager that signs with keys[activeKID]
// and verifies with any key in keys.
func NewJWTManagerFromKeys(keys map[string]string, activeKID string, duration time.Duration) *JWTManager {
	m := &JWTManager{
		keys:      make(map[string][]byte, len(keys)),
		activeKID: activeKID,
		duration:  duration,
	}
	for kid, secret := range keys {
		m.keys[kid] = []byte(secret)
	}
	return m
}

// GenerateToken issues a signed JWT token for a user.
func (m *JWTManager) GenerateToken(userID, email string) (string, time.Time, error) {
	secret, ok := m.keys[m.activeKID]
	if !ok {
		return "", time.Time{}, fmt.Errorf("no signing key for kid %q", m.activeKID)
	}

	now := time.Now()
	expiresAt := now.Add(m.duration)
	claims := &Claims{
		UserID: userID,
		Email:  normalize.Email(email), // stored lowercase, so claims match lookups
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	// HS256, with the kid header telling VerifyToken which key to use
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = m.activeKID

	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// VerifyToken parses and validates a token and returns its claims.
func (m *JWTManager) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// only HMAC; an asymmetric alg here would be an algorithm confusion attempt
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			// tokens issued before key ids existed
			kid = defaultKID
		}
		secret, ok := m.keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashPassword returns a bcrypt hash for the provided plaintext.
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(hash, password string) error {
	// constant time; nil means match
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
