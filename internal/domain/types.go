package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
)

// MapOfAny is a JSON object column.
type MapOfAny map[string]any

// Scan implements the sql.Scanner interface
func (m *MapOfAny) Scan(val interface{}) error {
	var data []byte

	if b, ok := val.([]byte); ok {
		// The sql driver reuses the backing array for future queries,
		// so the bytes must be cloned before unmarshalling.
		data = bytes.Clone(b)
	} else if s, ok := val.(string); ok {
		data = []byte(s)
	} else if val == nil {
		return nil
	}

	return json.Unmarshal(data, m)
}

// Value implements the driver.Valuer interface
func (m MapOfAny) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Pagination describes the page window of a list response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes the page count for a total row count.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
