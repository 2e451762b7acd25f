// Package jwt reads the registered claims of auth-backend access tokens.
//
// The client never holds the backend's signing key, so tokens are decoded
// without signature verification. The result is only used to schedule
// refreshes and to label a session; authorization decisions stay on the
// server.
package jwt
