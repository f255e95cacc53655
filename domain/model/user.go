package model

import "github.com/golang-jwt/jwt"

// UserClaims are the JWT claims carried by API callers. Issuer holds the
// opaque user id used as the job owner.
type UserClaims struct {
	UserName string `json:"user_name"`
	jwt.StandardClaims
}
