package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// DefaultLimit is the page size used when a request omits one.
	DefaultLimit = 25
	// MaxLimit caps how many rows a list query returns.
	MaxLimit = 100
)

// Params holds cursor pagination inputs.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last row of the previous page in (created_at, id) order.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Page is a list response with an opaque cursor for the next page.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// ParseParams reads limit and cursor query values.
func ParseParams(limit, cursor string) (Params, error) {
	p := Params{Cursor: strings.TrimSpace(cursor)}
	if s := strings.TrimSpace(limit); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Params{}, fmt.Errorf("invalid limit %q", limit)
		}
		p.Limit = n
	}
	if _, err := ParseCursor(p.Cursor); err != nil {
		return Params{}, err
	}
	return p, nil
}

func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer asks for one extra row so callers can tell whether a next page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

func EncodeCursor(cursor Cursor) string {
	payload := fmt.Sprintf("%s|%s", cursor.CreatedAt.UTC().Format(time.RFC3339Nano), cursor.ID.String())
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a cursor; an empty value yields nil.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}
	t, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{CreatedAt: t, ID: id}, nil
}

// Apply orders the query by (created_at, id) descending, seeks past the
// cursor and limits to one extra row.
func Apply(q *gorm.DB, p Params) (*gorm.DB, error) {
	cur, err := ParseCursor(p.Cursor)
	if err != nil {
		return nil, err
	}
	if cur != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cur.CreatedAt, cur.CreatedAt, cur.ID)
	}
	return q.Order("created_at DESC").Order("id DESC").Limit(LimitWithBuffer(p.Limit)), nil
}

// Build trims the buffered row and encodes the next cursor from the last item.
func Build[T any](rows []T, limit int, key func(T) Cursor) Page[T] {
	n := NormalizeLimit(limit)
	page := Page[T]{Items: rows}
	if len(rows) > n {
		page.Items = rows[:n]
		page.NextCursor = EncodeCursor(key(page.Items[n-1]))
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page
}
