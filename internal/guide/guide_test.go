package guide

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	pdf, err := Build(Data{
		OrderID:  "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		FullName: "Zoë",
		Items:    []Item{{Name: "Ana", Price: decimal.NewFromInt(99)}},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestItemLines(t *testing.T) {
	var items []Item
	for i := 0; i < 25; i++ {
		items = append(items, Item{Name: fmt.Sprintf("va-%d", i), Price: decimal.RequireFromString("89.1")})
	}

	lines := ItemLines(items)
	require.Len(t, lines, MaxItems)
	assert.Equal(t, "va-0 — $89.10", lines[0])
}
