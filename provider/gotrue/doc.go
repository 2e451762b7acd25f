// Package gotrue implements sessionguard.Provider against the Supabase Auth
// (GoTrue) REST API.
//
// The client keeps the signed-in session in a session.Store, refreshes it
// shortly before the access token expires and pushes SIGNED_IN,
// SIGNED_OUT, TOKEN_REFRESHED and USER_UPDATED transitions to listeners
// registered with [Client.OnAuthStateChange].
//
// Failures are reported so that sessionguard.IsRetryable classifies them:
// transport errors and 408/5xx responses carry "network error" in their
// message; other 4xx responses surface as *APIError and are terminal.
package gotrue
