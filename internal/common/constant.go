package common

// Cookie names used to deliver the token pair to browsers.
const (
	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"
)

// AuthorizationHeaderName carries "Bearer <access token>" for clients that
// do not keep cookies.
const AuthorizationHeaderName = "Authorization"
