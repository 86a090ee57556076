package constant

const (
	DefaultTokenType = "Bearer"

	// Token type discriminator claim values.
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	TokenIssuer   = "framekraft-auth"
	TokenAudience = "framekraft-api"

	// Action token purposes.
	PurposeVerifyEmail   = "verify_email"
	PurposeResetPassword = "reset_password"

	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)
