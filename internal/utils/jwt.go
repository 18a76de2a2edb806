package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. A token is only accepted where its purpose matches.
const (
	PurposeAccess        = "access"
	PurposeVerifyEmail   = "verify_email"
	PurposeResetPassword = "reset_password"
)

var (
	ErrNoSecret     = errors.New("JWT_SECRET is not configured")
	ErrWrongPurpose = errors.New("token used for the wrong purpose")
)

type Claims struct {
	UserID  string `json:"userId"`
	Role    string `json:"role,omitempty"`
	Purpose string `json:"purpose"`
	// PwdFingerprint binds a reset token to the password hash it was issued against.
	PwdFingerprint string `json:"pwd,omitempty"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a signed token for the given claims, valid for ttl.
func GenerateJWT(secret []byte, claims Claims, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString(secret)
}

// ValidateJWT parses tokenStr and checks its signature, expiry and purpose.
func ValidateJWT(secret []byte, tokenStr, purpose string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}

// PasswordFingerprint is a short digest of a stored password hash. It changes
// whenever the password does, which retires reset tokens issued before.
func PasswordFingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}
