// Package pagination implements keyset paging over snowflake ids. Ids are
// time ordered, so "id < last id seen" walks any list newest first without
// offsets.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250

	tokenPrefix = "before:"
)

var ErrInvalidToken = errors.New("invalid_page_token")

// Pagination is embedded in list requests and bound from the query string.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=50"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

// Size clamps the requested page size into [1, MaxPageSize].
func (p Pagination) Size() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// Before returns the exclusive upper id bound carried by the page token, or
// nil for the first page.
func (p Pagination) Before() (*snowflake.ID, error) {
	token := strings.TrimSpace(p.PageToken)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	value, ok := strings.CutPrefix(string(raw), tokenPrefix)
	if !ok {
		return nil, ErrInvalidToken
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return nil, ErrInvalidToken
	}
	return &id, nil
}

// Token encodes id as a URL-safe page token.
func Token(id snowflake.ID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(tokenPrefix + id.String()))
}

// Page takes rows fetched with a limit of size+1, drops the probe row and
// builds the page info pointing past the last row kept.
func Page[T any](rows []*T, size int, id func(*T) snowflake.ID) ([]T, PageInfo) {
	var info PageInfo
	if len(rows) > size {
		rows = rows[:size]
		info.HasMore = true
	}

	items := make([]T, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			items = append(items, *row)
		}
	}
	if info.HasMore && len(items) > 0 {
		info.NextPageToken = Token(id(&items[len(items)-1]))
	}
	return items, info
}
