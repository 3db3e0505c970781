package tgbot

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/go-faster/errors"
)

// Kind classifies handler failures. Each kind has its own reply text.
type Kind int

const (
	KindFetchFailed Kind = iota + 1
	KindDownloadFailed
	KindTooLarge
	KindNoSession
)

func (k Kind) String() string {
	switch k {
	case KindFetchFailed:
		return "fetch_failed"
	case KindDownloadFailed:
		return "download_failed"
	case KindTooLarge:
		return "too_large"
	case KindNoSession:
		return "no_session"
	default:
		return "unknown"
	}
}

const (
	msgFetchFailed    = "❌ Unable to fetch video details. Try another link."
	msgDownloadFailed = "❌ Download failed. Try another link."
	msgNoSession      = "ℹ️ No active link. Send a video URL first."
)

type Error struct {
	Kind Kind
	// Size is set for KindTooLarge.
	Size int64
	Err  error
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is the text sent to the chat for this failure.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindFetchFailed:
		return msgFetchFailed
	case KindTooLarge:
		return fmt.Sprintf("❌ File is too large to send: %s (limit %s).",
			humanize.IBytes(uint64(e.Size)), humanize.IBytes(uint64(MaxUploadSize)))
	case KindNoSession:
		return msgNoSession
	default:
		return msgDownloadFailed
	}
}

// asError returns err as *Error, classifying anything else as fallback.
func asError(err error, fallback Kind) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(fallback, err)
}
