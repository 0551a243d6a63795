package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "Pool Deck Coping", CollapseSpace("  Pool\n\tDeck  Coping  "))
	assert.Equal(t, "", CollapseSpace(" \n "))
}

func TestDedupeFold(t *testing.T) {
	got := DedupeFold([]string{" Tile ", "plaster", "TILE", "", "  "})
	assert.Equal(t, []string{"Tile", "plaster"}, got)
	assert.Empty(t, DedupeFold(nil))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"l1.prodbx.com", "addenda.example.com"}, SplitList("l1.prodbx.com, addenda.example.com,L1.PRODBX.COM"))
	assert.Nil(t, SplitList("  "))
}
