package sessionguard

import (
	"context"
	"log/slog"
)

// handleAuthStateChange is registered with the provider exactly once, in Build.
func (g *Guard) handleAuthStateChange(event AuthEvent, sess *Session) {
	if g == nil || g.closed.Load() {
		return
	}
	g.logger.Info("auth state changed",
		slog.String("event", string(event)),
		slog.Bool("session", sess != nil),
	)

	g.presenter.HideLoading()

	ctx := context.Background()
	switch {
	case event == EventSignedOut || sess == nil:
		g.metricInc(MetricEventSignedOut)
		g.showIdentity(nil)
		landing := g.config.Redirect.LandingPath
		if g.navigator.Location() != landing {
			g.redirect(ctx, landing, g.config.UI.SigningOutMessage, MetricRedirectLanding, auditEventRedirectLanding, nil)
		}
	case event == EventSignedIn:
		g.metricInc(MetricEventSignedIn)
		g.showIdentity(sess.User)
	case event == EventTokenRefreshed:
		g.metricInc(MetricEventTokenRefreshed)
		g.showIdentity(sess.User)
	default:
		g.metricInc(MetricEventOther)
	}

	g.emitAudit(ctx, auditEventAuthState, true, sessionUserID(sess), "", nil, map[string]string{
		"event": string(event),
	})
}

// showIdentity renders the user's display name, or the anonymous label.
func (g *Guard) showIdentity(u *User) {
	name := u.DisplayName()
	if name == "" {
		name = g.config.UI.AnonymousLabel
	}
	g.presenter.SetUserName(name)
}

func sessionUserID(sess *Session) string {
	if sess == nil {
		return ""
	}
	return userID(sess.User)
}
