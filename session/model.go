package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CurrentSchemaVersion is written by [Encode].
const CurrentSchemaVersion = 1

var (
	// ErrUnsupportedSchema is returned by Decode for unknown record versions.
	ErrUnsupportedSchema = errors.New("unsupported session schema version")
	// ErrCorruptRecord is returned by Decode for undecodable input.
	ErrCorruptRecord = errors.New("corrupt session record")
	// ErrNilRecord is returned when saving a nil record.
	ErrNilRecord = errors.New("nil session record")
)

// Record is the persisted form of an auth session.
type Record struct {
	SchemaVersion int               `json:"v"`
	AccessToken   string            `json:"access_token"`
	RefreshToken  string            `json:"refresh_token"`
	TokenType     string            `json:"token_type,omitempty"`
	ExpiresAt     int64             `json:"expires_at"`
	UserID        string            `json:"user_id,omitempty"`
	Email         string            `json:"email,omitempty"`
	UserMetadata  map[string]string `json:"user_metadata,omitempty"`
}

// Expiry returns ExpiresAt as a time.
func (r *Record) Expiry() time.Time {
	if r == nil || r.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(r.ExpiresAt, 0)
}

// Expired reports whether the access token is expired at now.
func (r *Record) Expired(now time.Time) bool {
	exp := r.Expiry()
	return !exp.IsZero() && !now.Before(exp)
}

// Encode serializes r at CurrentSchemaVersion.
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		return nil, ErrNilRecord
	}
	out := *r
	out.SchemaVersion = CurrentSchemaVersion
	return json.Marshal(&out)
}

// Decode parses data written by Encode.
func Decode(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	if r.SchemaVersion != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, r.SchemaVersion)
	}
	return &r, nil
}
