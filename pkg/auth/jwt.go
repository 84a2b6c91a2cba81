package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Claims carried by a coach session token.
type Claims struct {
	CoachID uuid.UUID `json:"coach_id"`
	jwt.RegisteredClaims
}

type JWTService interface {
	GenerateToken(coachID uuid.UUID) (string, error)
	ValidateToken(token string) (*Claims, error)
	ValidateServiceKey(key string) error
}

type jwtService struct {
	secret         []byte
	expiry         time.Duration
	serviceKeyHash []byte
}

// NewJWTService builds the token verifier. serviceKeyHash is a bcrypt hash
// of the static key internal callers (the scheduler worker) present instead
// of a coach token; empty disables service-key auth.
func NewJWTService(secret string, expiry time.Duration, serviceKeyHash string) JWTService {
	return &jwtService{
		secret:         []byte(secret),
		expiry:         expiry,
		serviceKeyHash: []byte(serviceKeyHash),
	}
}

func (s *jwtService) GenerateToken(coachID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &Claims{
		CoachID: coachID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *jwtService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func (s *jwtService) ValidateServiceKey(key string) error {
	if len(s.serviceKeyHash) == 0 {
		return fmt.Errorf("service key auth disabled")
	}
	return bcrypt.CompareHashAndPassword(s.serviceKeyHash, []byte(key))
}
