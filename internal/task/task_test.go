package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTitle_Trims(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Buy milk", "Buy milk"},
		{"leading", "  Buy milk", "Buy milk"},
		{"trailing", "Buy milk\t ", "Buy milk"},
		{"both", "\n  Buy milk  \n", "Buy milk"},
		{"inner whitespace kept", "Buy  milk", "Buy  milk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTitle(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeTitle_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n", "   "} {
		_, err := NormalizeTitle(input)
		assert.ErrorIs(t, err, ErrEmptyTitle, "input %q", input)
	}
}

func TestNormalizeTitle_NFC(t *testing.T) {
	// "e" + combining acute accent normalizes to the precomposed form.
	got, err := NormalizeTitle("café")
	require.NoError(t, err)
	assert.Equal(t, "café", got)
}

func TestCount(t *testing.T) {
	tasks := []Task{
		{ID: "a", Completed: false},
		{ID: "b", Completed: true},
		{ID: "c", Completed: false},
	}

	c := Count(tasks)

	assert.Equal(t, 2, c.Active)
	assert.Equal(t, 1, c.Completed)
	assert.Equal(t, len(tasks), c.Active+c.Completed)
}

func TestCount_Empty(t *testing.T) {
	c := Count(nil)
	assert.Equal(t, Counts{}, c)
}
