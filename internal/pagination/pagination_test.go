package pagination

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Resolve(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		page     int
		size     int
		expected Window
		offset   int
	}{
		{name: "defaults", expected: Window{Page: 1, Size: 5}, offset: 0},
		{name: "second page", page: 2, expected: Window{Page: 2, Size: 5}, offset: 5},
		{name: "custom size", page: 3, size: 20, expected: Window{Page: 3, Size: 20}, offset: 40},
		{name: "size clamped", page: 3, size: 1001, expected: Window{Page: 3, Size: 1000}, offset: 2000},
		{name: "negative page", page: -4, size: 10, expected: Window{Page: 1, Size: 10}, offset: 0},
		{
			name:     "huge page capped",
			page:     math.MaxInt,
			size:     4,
			expected: Window{Page: math.MaxInt / 4, Size: 4},
			offset:   (math.MaxInt/4 - 1) * 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := p.Resolve(tt.page, tt.size)
			assert.Equal(t, tt.expected, w)
			assert.Equal(t, tt.offset, w.Offset())
			assert.Equal(t, tt.expected.Size, w.Limit())
		})
	}
}

func TestNewEnvelope(t *testing.T) {
	base, err := url.Parse("http://testserver/places?page_size=5")
	require.NoError(t, err)

	tests := []struct {
		name     string
		window   Window
		count    int64
		results  []int
		next     string
		previous string
	}{
		{
			name:    "first page",
			window:  Window{Page: 1, Size: 5},
			count:   12,
			results: []int{1, 2, 3, 4, 5},
			next:    "http://testserver/places?page=2&page_size=5",
		},
		{
			name:     "middle page drops page param for previous",
			window:   Window{Page: 2, Size: 5},
			count:    12,
			results:  []int{6, 7, 8, 9, 10},
			next:     "http://testserver/places?page=3&page_size=5",
			previous: "http://testserver/places?page_size=5",
		},
		{
			name:     "last page",
			window:   Window{Page: 3, Size: 5},
			count:    12,
			results:  []int{11, 12},
			previous: "http://testserver/places?page=2&page_size=5",
		},
		{
			name:     "past the end",
			window:   Window{Page: 9, Size: 5},
			count:    12,
			previous: "http://testserver/places?page=3&page_size=5",
		},
		{
			name:   "empty collection",
			window: Window{Page: 1, Size: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NewEnvelope(tt.results, tt.count, tt.window, base)

			assert.Equal(t, tt.count, env.Count)
			assert.NotNil(t, env.Results)
			assert.Len(t, env.Results, len(tt.results))

			if tt.next == "" {
				assert.Nil(t, env.Next)
			} else {
				require.NotNil(t, env.Next)
				assert.Equal(t, tt.next, *env.Next)
			}

			if tt.previous == "" {
				assert.Nil(t, env.Previous)
			} else {
				require.NotNil(t, env.Previous)
				assert.Equal(t, tt.previous, *env.Previous)
			}
		})
	}
}
