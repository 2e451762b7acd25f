package phrases

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/MrEthical07/sessionguard"
	"github.com/MrEthical07/sessionguard/internal/logging"
)

const (
	msgCopied     = "Phrase copied to clipboard"
	msgCopyFailed = "Could not copy the phrase"
	msgShared     = "Phrase shared"

	// DefaultShareTitle titles shared phrases.
	DefaultShareTitle = "Entrelíneas"
)

// ErrShareUnsupported is returned by a Sharer that has no share target.
var ErrShareUnsupported = errors.New("phrases: sharing not supported")

// Clipboard writes text to the user's clipboard.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// ShareRequest is what a Sharer hands to the platform share target.
type ShareRequest struct {
	Title string
	Text  string
	URL   string
}

// Sharer hands a phrase to a platform share target.
type Sharer interface {
	Share(ctx context.Context, req ShareRequest) error
}

// Sharing copies and shares phrase text with toast feedback.
type Sharing struct {
	clipboard Clipboard
	sharer    Sharer
	toaster   Toaster
	logger    *slog.Logger

	// Title and URL are attached to every share request.
	Title string
	URL   string
}

// NewSharing returns copy/share actions. A nil sharer means the platform
// cannot share, and Share copies instead. toaster may be nil.
func NewSharing(clipboard Clipboard, sharer Sharer, toaster Toaster, logger *slog.Logger) *Sharing {
	if toaster == nil {
		toaster = sessionguard.NoopPresenter{}
	}
	return &Sharing{
		clipboard: clipboard,
		sharer:    sharer,
		toaster:   toaster,
		logger:    logging.Child(logger, "phrases"),
		Title:     DefaultShareTitle,
	}
}

// Copy writes text to the clipboard and toasts the outcome.
func (s *Sharing) Copy(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyPhrase
	}
	if s.clipboard == nil {
		err := errors.New("phrases: no clipboard")
		s.logger.Error("copy phrase failed", logging.Error(err))
		s.toaster.Toast(msgCopyFailed, sessionguard.ToastError)
		return err
	}
	if err := s.clipboard.WriteText(ctx, text); err != nil {
		s.logger.Error("copy phrase failed", logging.Error(err))
		s.toaster.Toast(msgCopyFailed, sessionguard.ToastError)
		return err
	}
	s.toaster.Toast(msgCopied, sessionguard.ToastSuccess)
	return nil
}

// Share hands text to the Sharer. Without a Sharer, or when sharing fails,
// the text is copied to the clipboard instead and Copy's result returned.
func (s *Sharing) Share(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyPhrase
	}
	if s.sharer == nil {
		return s.Copy(ctx, text)
	}
	err := s.sharer.Share(ctx, ShareRequest{Title: s.Title, Text: text, URL: s.URL})
	if err != nil {
		s.logger.Info("share failed, copying instead", logging.Error(err))
		return s.Copy(ctx, text)
	}
	s.toaster.Toast(msgShared, sessionguard.ToastSuccess)
	return nil
}
