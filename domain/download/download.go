// Package download provides download event types, request parsing, and the
// error kinds reported by the usage recorder.
package download

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Event is one recorded download (immutable value type).
// Events are append-only; the recorder never updates or deletes them.
type Event struct {
	ID        string
	UserID    string
	Image     json.RawMessage // Opaque image reference supplied by the caller
	CreatedAt time.Time
}

// DefaultHistoryLimit caps history listings when no limit is given.
const DefaultHistoryLimit = 100

// Request is the decoded body of a usage-meter call.
type Request struct {
	Image json.RawMessage `json:"image"`
}

// ErrMissingImage is returned when the body has no usable image value.
var ErrMissingImage = errors.New("image is required")

// ParseRequest decodes a usage-meter body. The image value is kept as raw
// JSON in compact form so that equal payloads compare byte-for-byte.
func ParseRequest(body []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, err
	}
	if len(req.Image) == 0 || bytes.Equal(req.Image, []byte("null")) {
		return Request{}, ErrMissingImage
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, req.Image); err != nil {
		return Request{}, err
	}
	req.Image = buf.Bytes()
	return req, nil
}
