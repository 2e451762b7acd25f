package sessionguard

import "errors"

var (
	// ErrProviderRequired is returned by Build when no Provider was supplied.
	ErrProviderRequired = errors.New("session provider required")
	// ErrNavigatorRequired is returned by Build when no Navigator was supplied.
	ErrNavigatorRequired = errors.New("navigator required")
	// ErrBuilderUsed is returned when Build is called twice on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid guard configuration")
	// ErrSubscriptionFailed is returned by Build when the provider rejects the state listener.
	ErrSubscriptionFailed = errors.New("auth state subscription failed")
	// ErrGuardNotReady is returned by methods called on a nil or closed Guard.
	ErrGuardNotReady = errors.New("guard not initialized")
)
