package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongScope   = errors.New("token lacks the required scope")
	ErrBadSecret    = errors.New("admin secret mismatch")
)

const ScopeCodeStore = "codestore"

// ServiceClaims are the claims carried by instance-to-instance tokens
// guarding the code-store API.
type ServiceClaims struct {
	Caller string `json:"caller"`
	Scope  string `json:"scope"`
	jwt.RegisteredClaims
}

type TokenManager interface {
	IssueServiceToken(caller string) (string, error)
	ValidateServiceToken(tokenString string) (*ServiceClaims, error)
}

type tokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) TokenManager {
	return &tokenManager{secret: []byte(secret)}
}

func (m *tokenManager) IssueServiceToken(caller string) (string, error) {
	claims := ServiceClaims{
		Caller: caller,
		Scope:  ScopeCodeStore,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(10 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "groupgate",
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateServiceToken(tokenString string) (*ServiceClaims, error) {
	claims := &ServiceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Scope != ScopeCodeStore {
		return nil, ErrWrongScope
	}
	return claims, nil
}

// VerifyAdminSecret compares a presented admin secret against the bcrypt
// hash from configuration. The plaintext secret is never stored.
func VerifyAdminSecret(secretHash, presented string) error {
	if secretHash == "" || presented == "" {
		return ErrBadSecret
	}
	if err := bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(presented)); err != nil {
		return ErrBadSecret
	}
	return nil
}
