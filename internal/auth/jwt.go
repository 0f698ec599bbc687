package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type JWTAuthenticator struct {
	secret        string
	refreshSecret string
	aud           string
	iss           string
	accessExp     time.Duration
	refreshExp    time.Duration
}

func NewJWTAuthenticator(secret, refreshSecret, aud, iss string, accessExp, refreshExp time.Duration) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret:        secret,
		refreshSecret: refreshSecret,
		aud:           aud,
		iss:           iss,
		accessExp:     accessExp,
		refreshExp:    refreshExp,
	}
}

// GenerateTokens generates both access and refresh tokens
func (a *JWTAuthenticator) GenerateTokens(userID string) (string, string, error) {
	now := time.Now()

	accessClaims := jwt.MapClaims{
		"sub": userID,
		"exp": now.Add(a.accessExp).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"iss": a.iss,
		"aud": a.aud,
	}

	refreshClaims := jwt.MapClaims{
		"sub": userID,
		"exp": now.Add(a.refreshExp).Unix(),
		"iat": now.Unix(),
		"iss": a.iss,
	}

	accessToken, err := a.generateTokenWithClaims(accessClaims, a.secret)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := a.generateTokenWithClaims(refreshClaims, a.refreshSecret)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (a *JWTAuthenticator) generateTokenWithClaims(claims jwt.Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateAccessToken validates the access token
func (a *JWTAuthenticator) ValidateAccessToken(token string) (*jwt.Token, error) {
	return jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(a.secret), nil
	}, jwt.WithExpirationRequired(), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
}

// ValidateRefreshToken validates the refresh token
func (a *JWTAuthenticator) ValidateRefreshToken(token string) (*jwt.Token, error) {
	return jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(a.refreshSecret), nil
	}, jwt.WithExpirationRequired(), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
}
