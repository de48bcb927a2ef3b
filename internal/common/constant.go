package common

// AuthorizationHeader carries the device access token as "Bearer <jwt>".
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the token in AuthorizationHeader.
const BearerPrefix = "Bearer "
