package pagination

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// ErrInvalidCursor is returned for cursors this package did not produce.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params is one page request as read from the query string. Cursor stays encoded until the
// service decodes it against its own listing.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor marks the last row of a page in a newest-first keyset listing.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit falls back to DefaultLimit and caps at MaxLimit.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Keyset returns a gorm scope that selects one newest-first page ordered by column then id. It
// fetches one extra row so Split can tell whether another page follows.
func Keyset(column string, after *Cursor, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if after != nil {
			db = db.Where(fmt.Sprintf("(%s, id) < (?, ?)", column), after.CreatedAt, after.ID)
		}
		return db.Order(column + " DESC").Order("id DESC").Limit(NormalizeLimit(limit) + 1)
	}
}

// Split trims rows fetched through Keyset back to limit and returns the cursor for the next page,
// or nil on the last page.
func Split[T any](rows []T, limit int, key func(T) Cursor) ([]T, *Cursor) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, nil
	}
	next := key(rows[limit-1])
	return rows[:limit], &next
}

// String encodes the cursor as 24 url-safe bytes: unix nanoseconds then the id.
func (c Cursor) String() string {
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(c.CreatedAt.UnixNano()))
	copy(buf[8:], c.ID[:])
	return base64.RawURLEncoding.EncodeToString(buf[:])
}

// Parse decodes a cursor from String. A blank value means the first page and yields nil.
func Parse(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) != 24 {
		return nil, ErrInvalidCursor
	}
	var id uuid.UUID
	copy(id[:], raw[8:])
	return &Cursor{
		CreatedAt: time.Unix(0, int64(binary.BigEndian.Uint64(raw[:8]))).UTC(),
		ID:        id,
	}, nil
}

// Encode is the nil-safe form of String used when building list responses.
func Encode(next *Cursor) string {
	if next == nil {
		return ""
	}
	return next.String()
}
