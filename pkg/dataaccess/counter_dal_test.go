package dataaccess

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Without a mongo connection the counter store runs in-memory only: loads
// seed an empty map and saves are dropped without an error, so the allocator
// never logs a warning per allocation.
func TestCounterDal_NoDatabase(t *testing.T) {
	require.Nil(t, MongoDB)
	d := NewCounterDal(testLogger())

	counters, err := d.LoadCounters(context.Background())
	require.NoError(t, err)
	require.Empty(t, counters)

	err = d.SaveCounters(context.Background(), map[string]int{"member_edit": 1004})
	require.NoError(t, err)
}
