package annot

import "errors"

var (
	// ErrEmptySelection marks collapsed or text-free selections; entry
	// points treat it as a benign no-op.
	ErrEmptySelection = errors.New("annot: empty selection")
	// ErrSessionNotFound means no session is open for the page key.
	ErrSessionNotFound = errors.New("annot: session not found")
	// ErrNotFound means neither markers nor a stored record carry the id.
	ErrNotFound = errors.New("annot: annotation not found")
	// ErrQuoteNotFound means the quote does not occur in the page text.
	ErrQuoteNotFound = errors.New("annot: quote not found in page")
	// ErrNoBridge means the caller asked for a live page but the
	// browser bridge is not configured or failed to start.
	ErrNoBridge = errors.New("annot: live bridge not available")
	// ErrNoSnapshot means no stored snapshot exists for the page.
	ErrNoSnapshot = errors.New("annot: no stored snapshot for page")
	// ErrNoLayout means the session carries no element geometry, so
	// picker operations cannot run.
	ErrNoLayout = errors.New("annot: session has no layout geometry")
)
