package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	autherror "github.com/joshuatxtcllc/framekraft-sub002/internal/errors"
	"github.com/joshuatxtcllc/framekraft-sub002/pkg/constant"
)

const (
	testAccessSecret  = "test-access-secret"
	testRefreshSecret = "test-refresh-secret"
)

func newTestTokenService() *TokenService {
	return NewTokenService(testAccessSecret, testRefreshSecret, 15, 10080)
}

func TestTokenService_Generate(t *testing.T) {
	ts := newTestTokenService()

	access, refresh, expiresAt, err := ts.Generate("user-1", "owner@framekraft.test", "owner")
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	accessClaims, err := ts.VerifyAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", accessClaims.UserID)
	assert.Equal(t, "owner@framekraft.test", accessClaims.Email)
	assert.Equal(t, "owner", accessClaims.Role)
	assert.Equal(t, constant.TokenTypeAccess, accessClaims.TokenType)
	assert.Empty(t, accessClaims.SessionID)
	assert.Equal(t, constant.TokenIssuer, accessClaims.Issuer)
	assert.Contains(t, accessClaims.Audience, constant.TokenAudience)

	refreshClaims, err := ts.VerifyRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refreshClaims.UserID)
	assert.Equal(t, constant.TokenTypeRefresh, refreshClaims.TokenType)
}

func TestTokenService_GenerateWithSession(t *testing.T) {
	ts := newTestTokenService()

	access, refresh, _, err := ts.GenerateWithSession("user-1", "a@b.test", "employee", "session-42")
	require.NoError(t, err)

	accessClaims, err := ts.VerifyAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "session-42", accessClaims.SessionID)

	refreshClaims, err := ts.VerifyRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "session-42", refreshClaims.SessionID)
}

func TestTokenService_Verify_TypeDiscipline(t *testing.T) {
	ts := newTestTokenService()

	access, refresh, _, err := ts.Generate("user-1", "a@b.test", "owner")
	require.NoError(t, err)

	t.Run("refresh token rejected by access verifier", func(t *testing.T) {
		claims, err := ts.VerifyAccessToken(refresh)
		assert.Nil(t, claims)
		// The refresh token is signed with a different secret, so the access
		// verifier cannot even read its type claim.
		assert.ErrorIs(t, err, autherror.ErrTokenInvalid)
	})

	t.Run("access token rejected by refresh verifier", func(t *testing.T) {
		claims, err := ts.VerifyRefreshToken(access)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, autherror.ErrTokenInvalid)
	})

	t.Run("forged type claim caught when secrets are shared", func(t *testing.T) {
		shared := NewTokenService("one-secret", "one-secret", 15, 10080)
		_, sharedRefresh, _, err := shared.Generate("user-1", "a@b.test", "owner")
		require.NoError(t, err)

		claims, err := shared.VerifyAccessToken(sharedRefresh)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, autherror.ErrTokenWrongType)
	})
}

func TestTokenService_Verify_Failures(t *testing.T) {
	ts := newTestTokenService()

	t.Run("garbage token", func(t *testing.T) {
		claims, err := ts.VerifyAccessToken("not.a.jwt")
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, autherror.ErrTokenInvalid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenService("different-secret", testRefreshSecret, 15, 10080)
		access, _, _, err := other.Generate("user-1", "a@b.test", "owner")
		require.NoError(t, err)

		claims, err := ts.VerifyAccessToken(access)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, autherror.ErrTokenInvalid)
	})

	t.Run("expired token", func(t *testing.T) {
		expiring := NewTokenService(testAccessSecret, testRefreshSecret, -1, 10080)
		access, _, _, err := expiring.Generate("user-1", "a@b.test", "owner")
		require.NoError(t, err)

		claims, err := ts.VerifyAccessToken(access)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, autherror.ErrTokenExpired)
		assert.NotErrorIs(t, err, autherror.ErrTokenInvalid)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := JWTCustomClaims{
			UserID:    "user-1",
			TokenType: constant.TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "someone-else",
				Audience:  jwt.ClaimStrings{constant.TokenAudience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
		require.NoError(t, err)

		got, err := ts.VerifyAccessToken(token)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, autherror.ErrTokenInvalid)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := JWTCustomClaims{
			UserID:    "user-1",
			TokenType: constant.TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    constant.TokenIssuer,
				Audience:  jwt.ClaimStrings{"some-other-api"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
		require.NoError(t, err)

		got, err := ts.VerifyAccessToken(token)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, autherror.ErrTokenInvalid)
	})

	t.Run("unexpected signing method", func(t *testing.T) {
		// alg=none with the library's special "key".
		claims := JWTCustomClaims{
			UserID:    "user-1",
			TokenType: constant.TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    constant.TokenIssuer,
				Audience:  jwt.ClaimStrings{constant.TokenAudience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		got, err := ts.VerifyAccessToken(token)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, autherror.ErrTokenInvalid)
	})

	t.Run("unknown role claim", func(t *testing.T) {
		claims := JWTCustomClaims{
			UserID:    "user-1",
			Role:      "superuser",
			TokenType: constant.TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    constant.TokenIssuer,
				Audience:  jwt.ClaimStrings{constant.TokenAudience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
		require.NoError(t, err)

		got, err := ts.VerifyAccessToken(token)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, autherror.ErrTokenInvalid)
	})
}

func TestTokenService_Expiries(t *testing.T) {
	ts := newTestTokenService()
	assert.Equal(t, 15*time.Minute, ts.GetAccessTokenExpiry())
	assert.Equal(t, 7*24*time.Hour, ts.GetRefreshTokenExpiry())
}

func TestTokenService_IsExpiringSoon(t *testing.T) {
	ts := newTestTokenService()

	access, _, _, err := ts.Generate("user-1", "a@b.test", "owner")
	require.NoError(t, err)

	assert.False(t, ts.IsExpiringSoon(access, time.Minute))
	assert.True(t, ts.IsExpiringSoon(access, 20*time.Minute))
	assert.True(t, ts.IsExpiringSoon("garbage", time.Minute))
}
