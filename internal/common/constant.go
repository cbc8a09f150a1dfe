package common

// Cookie names carrying the session token pair.
const (
	AccessTokenCookieName  = "access_token"
	RefreshTokenCookieName = "refresh_token"
)

// TokenType is reported to clients alongside an issued access token.
const TokenType = "bearer"
