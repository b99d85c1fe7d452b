package jwtmw

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Claims は発行するトークンのクレーム。sub に10進のユーザーIDを入れます。
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the user id held in sub.
func (c Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrMissingSubject
	}
	return uint(id), nil
}
