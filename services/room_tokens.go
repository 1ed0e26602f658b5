package services

import (
	"errors"
	"time"

	"github.com/godocompany/tempchat/models"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a room token cannot be verified
var ErrInvalidToken = errors.New("invalid room token")

// RoomClaims identify who holds a room token and which room it unlocks
type RoomClaims struct {
	RoomID   string `json:"room_id"`
	Nickname string `json:"nickname"`
	Creator  bool   `json:"creator"`
	jwt.RegisteredClaims
}

// RoomTokensService signs and verifies the tokens handed out when someone
// creates or joins a room. The token stands in for the password on every
// later request.
type RoomTokensService struct {
	SigningSecret string
	TTL           time.Duration
	Issuer        string
}

// CreateToken creates a token for the nickname in the room. Only the token
// handed out when the room was created carries the creator flag.
func (s *RoomTokensService) CreateToken(
	room *models.Room,
	nickname string,
	creator bool,
	issuedDate time.Time,
) (string, error) {

	claims := RoomClaims{
		RoomID:   room.ID,
		Nickname: nickname,
		Creator:  creator,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			Subject:   nickname,
			IssuedAt:  jwt.NewNumericDate(issuedDate),
			NotBefore: jwt.NewNumericDate(issuedDate),
			ExpiresAt: jwt.NewNumericDate(issuedDate.Add(s.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.SigningSecret))

}

// ParseToken verifies the token and returns its claims
func (s *RoomTokensService) ParseToken(tokenStr string) (*RoomClaims, error) {

	token, err := jwt.ParseWithClaims(tokenStr, &RoomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.SigningSecret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*RoomClaims)
	if !ok || !token.Valid || len(claims.RoomID) == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil

}
