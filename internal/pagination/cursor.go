// Package pagination implements the cursor-based paging used by product
// listings. Cursors are opaque tokens; callers never see page numbers because
// insertion order is not stable enough for offset paging under concurrent
// writes.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// PerPage is the fixed page size for product listings.
const PerPage = 5

// Cursor marks the last row of a page. Listings order by (created_at, id),
// so the pair uniquely positions the start of the next page.
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// Encode renders the cursor as a URL-safe opaque token.
func (c Cursor) Encode() string {
	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses a token produced by Encode. An empty or malformed token
// yields a nil cursor, which callers treat as the first page.
func Decode(token string) *Cursor {
	if token == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil
	}
	return &c
}

// Page is the envelope returned by paginated listings. NextCursor is nil on
// the last page.
type Page[T any] struct {
	Items      []T     `json:"data"`
	PerPage    int     `json:"per_page"`
	NextCursor *string `json:"next_cursor"`
}
