// Package common contains shared constants and sentinel errors used across
// the QSO log components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer access token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token inside AuthorizationHeaderName.
const BearerPrefix = "Bearer "

// ProgramID identifies this software in exported interchange files.
const ProgramID = "QSOLOG"
