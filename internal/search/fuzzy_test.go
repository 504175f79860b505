package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/stash4me/internal/types"
)

func TestMatchesExact(t *testing.T) {
	text := "I love python tutorials and the rust ecosystem"

	assert.True(t, Matches(text, []string{"python"}, true, 0))
	assert.True(t, Matches(text, []string{"PYTHON"}, true, 0))
	assert.False(t, Matches(text, []string{"golang"}, true, 0))
}

func TestMatchesEmptyQueries(t *testing.T) {
	assert.True(t, Matches("anything at all", nil, true, 2))
	assert.True(t, Matches("", []string{}, false, 2))
}

func TestMatchesAndSemantics(t *testing.T) {
	text := "the quick brown fox and the lazy dog"

	// Both terms present: AND matches.
	assert.True(t, Matches(text, []string{"the", "and"}, true, 0))
	// One term missing: AND fails, OR succeeds.
	assert.False(t, Matches(text, []string{"the", "cat"}, true, 0))
	assert.True(t, Matches(text, []string{"the", "cat"}, false, 0))
	// Neither present: OR fails.
	assert.False(t, Matches(text, []string{"cat", "bird"}, false, 0))
}

func TestMatchesFuzzyTolerance(t *testing.T) {
	text := "I love python tutorials"

	// One typo within threshold 2 (>= 80% similarity).
	assert.True(t, Matches(text, []string{"pythn"}, true, 2))
	// Threshold 0 disables fuzzy matching.
	assert.False(t, Matches(text, []string{"pythn"}, true, 0))
}

func TestMatchesShortWordExclusion(t *testing.T) {
	// "cat" vs "car": one edit apart, but 3-character queries only match
	// exactly regardless of threshold.
	assert.False(t, Matches("my car is red", []string{"cat"}, true, 5))
	assert.True(t, Matches("my cat is red", []string{"cat"}, true, 5))
}

func TestMatchesFuzzyThresholdScaling(t *testing.T) {
	// "pythn" vs "python": similarity ~83%. Threshold 1 demands >= 90%.
	assert.False(t, Matches("python rocks", []string{"pythn"}, true, 1))
	assert.True(t, Matches("python rocks", []string{"pythn"}, true, 2))
}

func TestFilter(t *testing.T) {
	posts := []types.SavedPost{
		{ID: "1", Content: "learning python the hard way"},
		{ID: "2", Content: "rust borrow checker explained"},
		{ID: "3", Content: "python and rust compared"},
	}

	results := Filter(posts, []string{"python"}, true, 0, 0)
	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].ID)
	assert.Equal(t, "3", results[1].ID)

	// Limit caps results while preserving order.
	results = Filter(posts, []string{"python"}, true, 0, 1)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].ID)

	// OR across terms.
	results = Filter(posts, []string{"python", "rust"}, false, 0, 0)
	assert.Len(t, results, 3)
}
