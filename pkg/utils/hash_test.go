package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashString_StableAndSeparated(t *testing.T) {
	a := HashString("https://example.com/data.csv")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashString("https://example.com/data.csv"))
	assert.NotEqual(t, HashString("ab", "c"), HashString("a", "bc"))
}
