package sessionguard

import (
	"context"
	"strings"
	"time"
)

// AuthEvent names a session transition pushed by a [Provider].
type AuthEvent string

const (
	// EventSignedIn is emitted after a successful sign-in.
	EventSignedIn AuthEvent = "SIGNED_IN"
	// EventSignedOut is emitted after sign-out or when the persisted session is discarded.
	EventSignedOut AuthEvent = "SIGNED_OUT"
	// EventTokenRefreshed is emitted after the access token was rotated.
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	// EventUserUpdated is emitted after the user's profile changed.
	EventUserUpdated AuthEvent = "USER_UPDATED"
)

// User is the identity attached to a [Session].
type User struct {
	ID       string            `json:"id"`
	Email    string            `json:"email,omitempty"`
	Metadata map[string]string `json:"user_metadata,omitempty"`
}

// DisplayName returns the "username" metadata entry, or "" when unset.
func (u *User) DisplayName() string {
	if u == nil || u.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(u.Metadata["username"])
}

// Session is an authenticated identity as reported by the provider.
//
// Expiry is owned by the provider; the guard never inspects ExpiresAt.
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	User         *User
}

// Listener receives auth state transitions. A nil session means anonymous.
type Listener func(event AuthEvent, session *Session)

// Subscription is returned by [Provider.OnAuthStateChange] and retained for
// the guard's lifetime.
type Subscription interface {
	Unsubscribe()
}

// Provider is the remote session capability wrapped by [Guard].
//
// GetSession returns (nil, nil) when there is no session.
type Provider interface {
	GetSession(ctx context.Context) (*Session, error)
	OnAuthStateChange(listener Listener) (Subscription, error)
}

// Navigator reads and changes the client's current location.
type Navigator interface {
	Location() string
	Navigate(target string)
}

// ToastKind selects the styling of a transient notification.
type ToastKind string

const (
	// ToastSuccess marks a confirmation toast.
	ToastSuccess ToastKind = "success"
	// ToastError marks a failure toast.
	ToastError ToastKind = "error"
	// ToastInfo marks a neutral toast.
	ToastInfo ToastKind = "info"
)

// Presenter is the UI surface driven by guard side effects.
type Presenter interface {
	SetUserName(name string)
	ShowLoading(message string)
	HideLoading()
	Toast(message string, kind ToastKind)
}

// CheckState is a point-in-time view of the guard's session-check state.
type CheckState struct {
	InProgress bool
	RetryCount int
	MaxRetries int
}

// NoopPresenter discards every UI update.
type NoopPresenter struct{}

func (NoopPresenter) SetUserName(string)      {}
func (NoopPresenter) ShowLoading(string)      {}
func (NoopPresenter) HideLoading()            {}
func (NoopPresenter) Toast(string, ToastKind) {}
