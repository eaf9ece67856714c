package app

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// RejoinTokenService issues and verifies signed tokens binding a user to a
// room code, so a disconnected player can prove prior membership when
// rejoining a room that is already playing.
type RejoinTokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// RejoinClaims is the verified content of a rejoin token.
type RejoinClaims struct {
	UserID   string
	RoomCode string
}

// NewRejoinTokenService builds a token service. An empty secret disables the
// service; Issue and Verify then fail.
func NewRejoinTokenService(secret, issuer string, ttl time.Duration) *RejoinTokenService {
	return &RejoinTokenService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Issue creates a signed rejoin token for the given user and room.
func (s *RejoinTokenService) Issue(userID, roomCode string) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("rejoin token secret is not configured")
	}
	if userID == "" || roomCode == "" {
		return "", fmt.Errorf("user id and room code are required")
	}

	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"sub":  userID,
		"room": roomCode,
		"exp":  time.Now().Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a rejoin token, returning its claims.
func (s *RejoinTokenService) Verify(tokenString string) (RejoinClaims, error) {
	if len(s.secret) == 0 {
		return RejoinClaims{}, fmt.Errorf("rejoin token secret is not configured")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return RejoinClaims{}, fmt.Errorf("failed to parse rejoin token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return RejoinClaims{}, fmt.Errorf("rejoin token is invalid")
	}

	userID, _ := claims["sub"].(string)
	roomCode, _ := claims["room"].(string)
	if userID == "" || roomCode == "" {
		return RejoinClaims{}, fmt.Errorf("rejoin token claims are incomplete")
	}

	return RejoinClaims{UserID: userID, RoomCode: roomCode}, nil
}
