// Package testutil provides utilities for testing.
package testutil

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteGameFile writes one record per line to a file in a fresh temporary
// directory and returns its path. Every line gets a trailing newline.
func WriteGameFile(t *testing.T, lines ...string) string {
	t.Helper()
	return WriteRaw(t, "games.txt", strings.Join(lines, "\n")+"\n")
}

// WriteRaw writes content verbatim to name in a fresh temporary directory.
func WriteRaw(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// ReadLines returns the non-empty lines of path.
func ReadLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// RandomGames returns a reproducible set of records over players named
// p0..p(n-1). A ring of draws keeps every player connected, so no rating
// diverges; the remaining games are decisive with a bias toward the lower
// index, which gives a spread of ratings.
func RandomGames(seed int64, players, games int) []string {
	rng := rand.New(rand.NewSource(seed))
	lines := make([]string, 0, players+games)

	for i := 0; i < players; i++ {
		lines = append(lines, fmt.Sprintf("p%d:p%d:d", i, (i+1)%players))
	}
	for len(lines) < players+games {
		a, b := rng.Intn(players), rng.Intn(players)
		if a == b {
			continue
		}
		outcome := "b"
		if (a < b) != (rng.Intn(4) == 0) {
			outcome = "w"
		}
		lines = append(lines, fmt.Sprintf("p%d:p%d:%s", a, b, outcome))
	}
	return lines
}
