package gotrue

import (
	"time"

	"github.com/MrEthical07/sessionguard"
	"github.com/MrEthical07/sessionguard/jwt"
	"github.com/MrEthical07/sessionguard/session"
)

type wireUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
	User         *wireUser `json:"user"`
}

func (r *tokenResponse) record(now time.Time) *session.Record {
	rec := &session.Record{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
	}
	switch {
	case r.ExpiresAt > 0:
		rec.ExpiresAt = r.ExpiresAt
	case r.ExpiresIn > 0:
		rec.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second).Unix()
	default:
		if exp, err := jwt.ExpiresAt(r.AccessToken); err == nil {
			rec.ExpiresAt = exp.Unix()
		}
	}
	if r.User != nil {
		applyUser(rec, r.User)
		if rec.UserID == "" {
			rec.UserID, _ = jwt.Subject(r.AccessToken)
		}
	} else if claims, err := jwt.Inspect(r.AccessToken); err == nil {
		rec.UserID = claims.Subject
		rec.Email = claims.Email
		rec.UserMetadata = claims.Metadata()
	}
	return rec
}

func applyUser(rec *session.Record, u *wireUser) {
	rec.UserID = u.ID
	rec.Email = u.Email
	rec.UserMetadata = jwt.StringMetadata(u.UserMetadata)
}

func (u *wireUser) user() *sessionguard.User {
	if u == nil {
		return nil
	}
	return &sessionguard.User{
		ID:       u.ID,
		Email:    u.Email,
		Metadata: jwt.StringMetadata(u.UserMetadata),
	}
}

func toSession(rec *session.Record) *sessionguard.Session {
	if rec == nil {
		return nil
	}
	sess := &sessionguard.Session{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		TokenType:    rec.TokenType,
		ExpiresAt:    rec.Expiry(),
	}
	if rec.UserID != "" || rec.Email != "" {
		sess.User = &sessionguard.User{
			ID:       rec.UserID,
			Email:    rec.Email,
			Metadata: rec.UserMetadata,
		}
	}
	return sess
}
