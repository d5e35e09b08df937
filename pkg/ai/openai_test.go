package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchIntentOption(t *testing.T) {
	options := []IntentOption{
		{ID: "greets", Label: "Greets"},
		{ID: "asksPrice", Label: "Asks about pricing"},
	}

	id, ok := matchIntentOption(options, "greets")
	require.True(t, ok)
	require.Equal(t, "greets", id)

	// Completions differ from the declared id only in case; the canonical
	// id must come back, not the model's spelling.
	id, ok = matchIntentOption(options, "ASKSPRICE")
	require.True(t, ok)
	require.Equal(t, "asksPrice", id)

	_, ok = matchIntentOption(options, "hangs_up")
	require.False(t, ok)
}
