package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/joshuatxtcllc/framekraft-sub002/internal/auth/service TokenGenerator

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/domain"
	autherror "github.com/joshuatxtcllc/framekraft-sub002/internal/errors"
	"github.com/joshuatxtcllc/framekraft-sub002/pkg/constant"
)

type TokenGenerator interface {
	Generate(userID, email, role string) (string, string, time.Time, error)
	GenerateWithSession(userID, email, role, sessionID string) (string, string, time.Time, error)
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	VerifyAccessToken(tokenString string) (*JWTCustomClaims, error)
	VerifyRefreshToken(tokenString string) (*JWTCustomClaims, error)
	IsExpiringSoon(tokenString string, within time.Duration) bool
}

// TokenService signs access and refresh tokens with distinct secrets so a
// leaked access key cannot mint refresh tokens.
type TokenService struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type JWTCustomClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	SessionID string `json:"session_id,omitempty"`
}

func NewTokenService(accessSecret, refreshSecret string, accessMinutes, refreshMinutes int) *TokenService {
	return &TokenService{
		AccessTokenSecret:  accessSecret,
		RefreshTokenSecret: refreshSecret,
		AccessTokenExpiry:  time.Duration(accessMinutes) * time.Minute,
		RefreshTokenExpiry: time.Duration(refreshMinutes) * time.Minute,
	}
}

// Generate issues an access/refresh pair. The returned time is the access
// token expiry.
func (ts *TokenService) Generate(userID, email, role string) (string, string, time.Time, error) {
	return ts.GenerateWithSession(userID, email, role, "")
}

func (ts *TokenService) GenerateWithSession(userID, email, role, sessionID string) (string, string, time.Time, error) {
	now := time.Now()

	accessClaims := ts.newClaims(userID, email, role, sessionID, constant.TokenTypeAccess, now, ts.AccessTokenExpiry)
	refreshClaims := ts.newClaims(userID, email, role, sessionID, constant.TokenTypeRefresh, now, ts.RefreshTokenExpiry)

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(ts.AccessTokenSecret))
	if err != nil {
		return "", "", time.Time{}, err
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		refreshClaims).SignedString([]byte(ts.RefreshTokenSecret))
	if err != nil {
		return "", "", time.Time{}, err
	}

	return accessToken, refreshToken, now.Add(ts.AccessTokenExpiry), nil
}

func (ts *TokenService) newClaims(userID, email, role, sessionID, tokenType string, now time.Time, ttl time.Duration) JWTCustomClaims {
	return JWTCustomClaims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: tokenType,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    constant.TokenIssuer,
			Audience:  jwt.ClaimStrings{constant.TokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
}

func (ts *TokenService) GetAccessTokenExpiry() time.Duration {
	return ts.AccessTokenExpiry
}

func (ts *TokenService) GetRefreshTokenExpiry() time.Duration {
	return ts.RefreshTokenExpiry
}

// VerifyAccessToken parses and validates an access token. Expiry is
// reported as ErrTokenExpired so callers can offer a silent-refresh path;
// every other failure collapses to ErrTokenInvalid or ErrTokenWrongType.
func (ts *TokenService) VerifyAccessToken(tokenString string) (*JWTCustomClaims, error) {
	return ts.verify(tokenString, ts.AccessTokenSecret, constant.TokenTypeAccess)
}

// VerifyRefreshToken parses and validates a refresh token against the
// refresh secret.
func (ts *TokenService) VerifyRefreshToken(tokenString string) (*JWTCustomClaims, error) {
	return ts.verify(tokenString, ts.RefreshTokenSecret, constant.TokenTypeRefresh)
}

func (ts *TokenService) verify(tokenString, secret, wantType string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(constant.TokenIssuer),
		jwt.WithAudience(constant.TokenAudience),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherror.ErrTokenExpired
		}
		return nil, autherror.ErrTokenInvalid
	}

	if !token.Valid {
		return nil, autherror.ErrTokenInvalid
	}

	if claims.TokenType != wantType {
		return nil, autherror.ErrTokenWrongType
	}

	if !domain.Role(claims.Role).Valid() && claims.Role != "" {
		return nil, autherror.ErrTokenInvalid
	}

	return claims, nil
}

// IsExpiringSoon reports whether the access token expires within the given
// window, so clients can rotate before a hard 401. Malformed tokens count
// as expiring.
func (ts *TokenService) IsExpiringSoon(tokenString string, within time.Duration) bool {
	claims, err := ts.VerifyAccessToken(tokenString)
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return time.Until(claims.ExpiresAt.Time) <= within
}
