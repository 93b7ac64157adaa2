package auth

import "github.com/golang-jwt/jwt/v5"

type Authenticator interface {
	GenerateAccessToken(userID, businessID int64, role string) (string, error)
	GenerateTokens(userID, businessID int64, role string) (string, string, error)
	ValidateAccessToken(token string) (*jwt.Token, error)
	ValidateRefreshToken(token string) (*jwt.Token, error)
}
