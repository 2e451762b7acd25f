// Package sessionguard wraps a remote "get current session" capability with
// call coalescing, bounded retry and auth state-change dispatch, and drives
// redirect and identity-display side effects from the result.
//
// A [Guard] is built once at startup through [Builder.Build] with an explicit
// [Provider], [Navigator] and optional [Presenter]; there is no package-level
// singleton. Guard methods are safe to call from multiple goroutines.
//
// # Session checks
//
// [Guard.CheckSession] runs at most one remote check at a time. Callers that
// arrive while a check is in flight wait for it and share its result. Errors
// whose message mentions network, timeout, fetch or connection are retried up
// to Config.Retry.MaxRetries times, waiting n × Config.Retry.BaseDelay before
// retry n (1s, 2s, 3s by default). Any other error ends the check at once.
//
// # Failing open
//
// Query and redirect methods collapse check errors into "not authenticated"
// and "do not redirect" after logging them, so a backend outage never strands
// a visitor on a redirect loop or locks them out of a page.
//
// # Architecture boundaries
//
// This package owns coalescing, retry classification and side-effect
// dispatch. Talking to the auth backend lives in provider/gotrue, persisting
// the client-side session in session/, and metric export in metrics/export/.
//
// # What this package must NOT do
//
//   - Inspect token expiry; the provider owns it.
//   - Perform I/O other than through the injected Provider, Navigator and Presenter.
//   - Import provider or storage packages (no import cycles).
package sessionguard
