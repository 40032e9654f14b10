package rest

import (
	"fmt"

	"github.com/bwise1/civic_dispatch/util/values"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var errTokenExpired = errors.New("token expired")

// TokenClaims are issued by the identity service; this API only verifies them.
type TokenClaims struct {
	UserID string `json:"sub"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
	Exp    int64  `json:"exp"`
}

func validRole(role string) bool {
	switch role {
	case values.RoleCitizen, values.RoleAuthority, values.RoleAdmin:
		return true
	}
	return false
}

func (api *API) verifyToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(api.Config.JwtSecret), nil
	})

	if ve, ok := err.(*jwt.ValidationError); ok {
		if ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, errTokenExpired
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, "invalid token")
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	tokenType, _ := claims["typ"].(string)
	if tokenType != "access" {
		return nil, errors.New("invalid token type")
	}

	userID, ok := claims["sub"].(string)
	if !ok {
		return nil, errors.New("invalid user id")
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, errors.New("invalid user id")
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = values.RoleCitizen
	}
	if !validRole(role) {
		return nil, errors.New("invalid role")
	}

	var exp int64
	if v, ok := claims["exp"].(float64); ok {
		exp = int64(v)
	}

	return &TokenClaims{
		UserID: userID,
		Role:   role,
		Type:   tokenType,
		Exp:    exp,
	}, nil
}
