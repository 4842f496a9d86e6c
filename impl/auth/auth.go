package auth

import (
	"crypto/subtle"
	"fmt"
	"guildsync/entity"
)

// Auth validates dashboard tokens against the single operator token from
// the config. An empty configured token disables dashboard access.
type Auth struct {
	token string
}

func New(token string) *Auth {
	return &Auth{token: token}
}

func (a Auth) OperatorByToken(token string) (*entity.Operator, error) {
	if a.token == "" {
		return nil, fmt.Errorf("dashboard access not configured")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
		return nil, fmt.Errorf("unknown token")
	}
	return &entity.Operator{Name: "dashboard"}, nil
}
