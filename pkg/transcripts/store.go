// Package transcripts stores generated transcript documents on disk and hands
// out stable URLs for them. The monitoring HTTP server serves the files back
// by name.
package transcripts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/thaiesports/ticketbot/pkg/logging"
)

// Store is a directory-backed transcript archive.
type Store struct {
	l       *slog.Logger
	dir     string
	baseURL string
}

// TranscriptFile is one archived document.
type TranscriptFile struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// NewStore creates the archive directory if needed. baseURL is the public
// prefix transcripts are served under, e.g. "https://bot.example/transcripts".
func NewStore(l *slog.Logger, dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating transcripts directory: %w", err)
	}

	return &Store{
		l:       l.With(slog.String("component", "transcripts")),
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Save writes the document and returns its stable URL.
func (s *Store) Save(name string, content []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("error writing transcript: %w", err)
	}

	s.l.Info("Transcript saved", slog.String("file", name))
	return s.URL(name), nil
}

// URL returns the public URL for a stored document.
func (s *Store) URL(name string) string {
	return s.baseURL + "/" + name
}

// Get returns the content of a stored document.
func (s *Store) Get(name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.dir, name))
}

// List returns the archived documents, newest first.
func (s *Store) List() ([]TranscriptFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("error reading transcripts directory: %w", err)
	}

	out := make([]TranscriptFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, TranscriptFile{
			Name:     e.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Modified.After(out[j].Modified)
	})
	return out, nil
}

// CleanOlderThan removes documents older than the given number of days and
// returns how many were deleted.
func (s *Store) CleanOlderThan(days int) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("error reading transcripts directory: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	deleted := 0

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			s.l.Warn("Error deleting old transcript",
				slog.String("file", e.Name()),
				slog.String(logging.KeyError, err.Error()),
			)
			continue
		}
		deleted++
	}

	s.l.Info("Cleaned old transcripts", slog.Int("deleted", deleted), slog.Int("days", days))
	return deleted, nil
}

// validName rejects anything that could escape the archive directory.
func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid transcript name %q", name)
	}
	if !strings.HasSuffix(name, ".html") {
		return fmt.Errorf("invalid transcript name %q: not an html document", name)
	}
	return nil
}
