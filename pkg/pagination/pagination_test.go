package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		wantPage    int
		wantPerPage int
		wantOffset  int
	}{
		{name: "defaults", url: "/orders", wantPage: 1, wantPerPage: 10, wantOffset: 0},
		{name: "explicit window", url: "/orders?page=3&per_page=25", wantPage: 3, wantPerPage: 25, wantOffset: 50},
		{name: "per_page capped", url: "/orders?per_page=500", wantPage: 1, wantPerPage: 50, wantOffset: 0},
		{name: "garbage falls back", url: "/orders?page=abc&per_page=-1", wantPage: 1, wantPerPage: 10, wantOffset: 0},
		{name: "zero page falls back", url: "/orders?page=0", wantPage: 1, wantPerPage: 10, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromRequest(httptest.NewRequest("GET", tt.url, nil))
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPerPage, p.PerPage)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestNewResult(t *testing.T) {
	params := Params{Page: 2, PerPage: 10}
	result := NewResult([]string{"a", "b"}, 25, params)

	assert.Equal(t, 25, result.TotalCount)
	assert.Equal(t, 3, result.TotalPages)
	assert.True(t, result.HasNext)
	assert.True(t, result.HasPrev)

	empty := NewResult([]string{}, 0, DefaultParams())
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
	assert.False(t, empty.HasPrev)
}
