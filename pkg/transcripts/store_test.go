package transcripts

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewStore(l, t.TempDir(), "https://bot.example/transcripts/")
	require.NoError(t, err)
	return s
}

func TestStore_SaveAndGet(t *testing.T) {
	s := newTestStore(t)

	url, err := s.Save("transcript-1001-2025-06-02.html", []byte("<html>hi</html>"))
	require.NoError(t, err)
	require.Equal(t, "https://bot.example/transcripts/transcript-1001-2025-06-02.html", url)

	content, err := s.Get("transcript-1001-2025-06-02.html")
	require.NoError(t, err)
	require.Equal(t, "<html>hi</html>", string(content))
}

func TestStore_RejectsUnsafeNames(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name string
		file string
	}{
		{name: "Empty", file: ""},
		{name: "PathTraversal", file: "../secrets.html"},
		{name: "AbsolutePath", file: "/etc/passwd"},
		{name: "Backslash", file: `..\boot.html`},
		{name: "NotHTML", file: "transcript-1001.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Save(tt.file, []byte("x"))
			require.Error(t, err)

			_, err = s.Get(tt.file)
			require.Error(t, err)
		})
	}
}

func TestStore_List(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save("transcript-1001-2025-06-01.html", []byte("a"))
	require.NoError(t, err)
	_, err = s.Save("transcript-1002-2025-06-02.html", []byte("b"))
	require.NoError(t, err)

	files, err := s.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		require.NotZero(t, f.Size)
		require.False(t, f.Modified.IsZero())
	}
}

func TestStore_CleanOlderThan(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save("transcript-1001-2025-01-01.html", []byte("old"))
	require.NoError(t, err)
	_, err = s.Save("transcript-1002-2025-06-02.html", []byte("new"))
	require.NoError(t, err)

	// Age the first file past the cutoff.
	old := time.Now().AddDate(0, 0, -45)
	require.NoError(t, os.Chtimes(filepath.Join(s.dir, "transcript-1001-2025-01-01.html"), old, old))

	deleted, err := s.CleanOlderThan(30)
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	files, err := s.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "transcript-1002-2025-06-02.html", files[0].Name)
}
