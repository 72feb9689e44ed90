package auth

const (
	ContextKeyUserID   = "user_id"
	ContextKeyAuthType = "auth_type"

	jsonKeyError = "error"

	headerAuthorization = "Authorization"

	bearerScheme    = "bearer"
	authHeaderParts = 2
)

const (
	msgMissingAuthorization    = "missing authorization token"
	msgInvalidOrExpiredToken   = "invalid or expired token"
	msgUserNotAuthenticated    = "user not authenticated"
	msgInvalidUserIDCtx        = "invalid user ID in context"
	msgUnexpectedSigningMethod = "unexpected signing method: %v"
	msgTokenParseFailed        = "failed to parse token: %w"
	msgInvalidTokenClaims      = "invalid token claims"
	msgMissingSubject          = "token has no user"
)

type AuthType string

const (
	AuthTypeJWT       AuthType = "jwt"
	AuthTypeAnonymous AuthType = "anonymous"
)
