package domain

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// HistoryIndex names one of the two secondary orderings over history.
type HistoryIndex string

const (
	IndexByRecipient HistoryIndex = "recipient"
	IndexRecent      HistoryIndex = "recent"
)

// Cursor is the sort key of the last record a page returned. Partition is the
// email for IndexByRecipient and the record type for IndexRecent; ID breaks
// ties between records created in the same instant.
type Cursor struct {
	Index     HistoryIndex `json:"idx"`
	Partition string       `json:"pk"`
	CreatedAt time.Time    `json:"ts"`
	ID        string       `json:"id"`
}

// CursorAfter returns the cursor positioned on rec within index.
func CursorAfter(index HistoryIndex, rec HistoryRecord) Cursor {
	c := Cursor{Index: index, CreatedAt: rec.CreatedAt.UTC(), ID: rec.ID}
	if index == IndexByRecipient {
		c.Partition = rec.Email
	} else {
		c.Partition = rec.RecordType
	}
	return c
}

// Encode renders c as an opaque URL-safe token.
func (c Cursor) Encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

var errMalformedCursor = errors.New("malformed cursor")

// DecodeCursor parses a token produced by Encode.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var c Cursor
	if err := dec.Decode(&c); err != nil {
		return Cursor{}, err
	}
	if dec.More() {
		return Cursor{}, errMalformedCursor
	}
	if c.Index != IndexByRecipient && c.Index != IndexRecent {
		return Cursor{}, errMalformedCursor
	}
	if c.Partition == "" || c.ID == "" || c.CreatedAt.IsZero() {
		return Cursor{}, errMalformedCursor
	}
	return c, nil
}
