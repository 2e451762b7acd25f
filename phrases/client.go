package phrases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/sessionguard"
	"github.com/MrEthical07/sessionguard/internal/logging"
)

const (
	msgFavoriteAdded   = "Phrase added to favourites"
	msgFavoriteRemoved = "Phrase removed from favourites"
	msgFavoriteFailed  = "Could not update favourites"
	msgDeleted         = "Phrase deleted"
	msgDeleteFailed    = "Could not delete the phrase"
)

// ErrRejected is returned when the server answers success=false.
var ErrRejected = errors.New("phrases: request rejected")

// Toaster shows short notifications. sessionguard.Presenter satisfies it.
type Toaster interface {
	Toast(message string, kind sessionguard.ToastKind)
}

// SessionSource yields the current auth session. *sessionguard.Guard
// satisfies it.
type SessionSource interface {
	CheckSession(ctx context.Context) (*sessionguard.Session, error)
}

// Phrase is a generated phrase as returned by the app server.
type Phrase struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	OriginalEmotion string     `json:"original_emotion"`
	Style           string     `json:"style"`
	GeneratedPhrase string     `json:"generated_phrase"`
	Language        string     `json:"language"`
	IsFavorite      bool       `json:"is_favorite"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

type favoriteResponse struct {
	Success    bool   `json:"success"`
	IsFavorite bool   `json:"is_favorite"`
	Error      string `json:"error"`
}

// Client is safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	sessions SessionSource
	toaster  Toaster
	logger   *slog.Logger
}

// NewClient returns a client for the app server at baseURL. sessions may be
// nil for anonymous calls; toaster may be nil.
func NewClient(baseURL string, hc *http.Client, sessions SessionSource, toaster Toaster, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("phrases: invalid base URL %q", baseURL)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if toaster == nil {
		toaster = sessionguard.NoopPresenter{}
	}
	return &Client{
		baseURL:  strings.TrimRight(u.String(), "/"),
		http:     hc,
		sessions: sessions,
		toaster:  toaster,
		logger:   logging.Child(logger, "phrases"),
	}, nil
}

// ToggleFavorite flips the favourite flag of phrase id and returns the new
// state.
func (c *Client) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	var out favoriteResponse
	err := c.post(ctx, "/favorite/"+url.PathEscape(id), &out)
	if err == nil && !out.Success {
		reason := out.Error
		if reason == "" {
			reason = "unknown error"
		}
		err = fmt.Errorf("%w: %s", ErrRejected, reason)
	}
	if err != nil {
		c.logger.Error("toggle favourite failed", slog.String("phrase_id", id), logging.Error(err))
		c.toaster.Toast(msgFavoriteFailed, sessionguard.ToastError)
		return false, err
	}

	if out.IsFavorite {
		c.toaster.Toast(msgFavoriteAdded, sessionguard.ToastSuccess)
	} else {
		c.toaster.Toast(msgFavoriteRemoved, sessionguard.ToastSuccess)
	}
	return out.IsFavorite, nil
}

// Delete removes phrase id from the user's collection.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.post(ctx, "/delete/"+url.PathEscape(id), nil); err != nil {
		c.logger.Error("delete phrase failed", slog.String("phrase_id", id), logging.Error(err))
		c.toaster.Toast(msgDeleteFailed, sessionguard.ToastError)
		return err
	}
	c.toaster.Toast(msgDeleted, sessionguard.ToastSuccess)
	return nil
}

// Get fetches phrase id.
func (c *Client) Get(ctx context.Context, id string) (*Phrase, error) {
	var p Phrase
	if err := c.send(ctx, http.MethodGet, "/api/phrase/"+url.PathEscape(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) post(ctx context.Context, path string, out any) error {
	return c.send(ctx, http.MethodPost, path, out)
}

func (c *Client) send(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sessions != nil {
		sess, err := c.sessions.CheckSession(ctx)
		if err != nil {
			return fmt.Errorf("session: %w", err)
		}
		if sess != nil && sess.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: network error: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &body)
		if body.Error != "" {
			return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, body.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
