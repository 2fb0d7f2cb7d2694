package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type JWT struct {
	secret []byte
	ttl    time.Duration
}

func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret), ttl: 7 * 24 * time.Hour}
}

// Sign mints an identity token. The identity provider normally does this;
// the service only needs it for local development and tests.
func (j *JWT) Sign(id Identity) (string, error) {
	claims := jwt.MapClaims{
		"sub":     id.UID,
		"name":    id.DisplayName,
		"picture": id.PhotoURL,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(j.ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(j.secret)
}

func (j *JWT) Verify(tokenStr string) (Identity, error) {
	t, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	})
	if err != nil || !t.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, ErrInvalidToken
	}

	// name and picture are optional; providers omit them for some accounts
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)

	return Identity{UID: sub, DisplayName: name, PhotoURL: picture}, nil
}
