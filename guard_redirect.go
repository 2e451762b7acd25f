package sessionguard

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/sessionguard/internal/logging"
)

// RedirectIfNotAuthenticated sends anonymous visitors to target and reports
// whether a session exists.
//
// A failed check never redirects and returns false: a transient backend
// outage must not lock a visitor out of the current page. An empty target
// means Config.Redirect.LandingPath.
func (g *Guard) RedirectIfNotAuthenticated(ctx context.Context, target string) bool {
	if g == nil {
		return false
	}
	if target == "" {
		target = g.config.Redirect.LandingPath
	}

	sess, err := g.CheckSession(ctx)
	if err != nil {
		g.failOpen(ctx, target, err)
		return false
	}

	location := g.navigator.Location()
	if sess == nil && location != target {
		g.logger.Info("anonymous visitor, redirecting",
			slog.String("location", location),
			slog.String("target", target),
		)
		g.redirect(ctx, target, g.config.UI.CheckingMessage, MetricRedirectLanding, auditEventRedirectLanding, nil)
		return false
	}
	return sess != nil
}

// RedirectIfAuthenticated sends signed-in visitors to target. It returns true
// only when it redirected.
//
// A failed check never redirects and returns false. An empty target means
// Config.Redirect.HomePath.
func (g *Guard) RedirectIfAuthenticated(ctx context.Context, target string) bool {
	if g == nil {
		return false
	}
	if target == "" {
		target = g.config.Redirect.HomePath
	}

	sess, err := g.CheckSession(ctx)
	if err != nil {
		g.failOpen(ctx, target, err)
		return false
	}

	location := g.navigator.Location()
	if sess != nil && location != target {
		g.logger.Info("visitor already authenticated, redirecting",
			slog.String("location", location),
			slog.String("target", target),
		)
		g.redirect(ctx, target, g.config.UI.RedirectMessage, MetricRedirectHome, auditEventRedirectHome, sess.User)
		return true
	}
	return false
}

func (g *Guard) redirect(ctx context.Context, target, message string, metric MetricID, eventType string, user *User) {
	g.presenter.ShowLoading(message)
	g.metricInc(metric)
	g.emitAudit(ctx, eventType, true, userID(user), target, nil, nil)
	g.navigator.Navigate(target)
}

func (g *Guard) failOpen(ctx context.Context, target string, err error) {
	g.logger.Warn("session check failed, allowing access",
		logging.Error(err),
		slog.String("target", target),
	)
	g.metricInc(MetricRedirectSkipped)
	g.emitAudit(ctx, auditEventRedirectSkipped, false, "", target, err, nil)
}

func userID(u *User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
