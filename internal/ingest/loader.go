package ingest

import (
	"bytes"
	"fmt"

	"github.com/pairwise-ratings/internal/graph"
	pkgerrors "github.com/pairwise-ratings/pkg/errors"
	"github.com/pairwise-ratings/pkg/utils"
)

// LoadStats summarizes one ingestion pass.
type LoadStats struct {
	Bytes   int64
	Lines   int
	Games   int
	Players int
}

// Load feeds every "white:black:outcome" line of data to b. Lines end with
// '\n' (a trailing '\r' is dropped) and the last line needs no terminator.
// The first malformed line aborts the load with a *errors.ParseError; the
// builder must then be discarded.
func Load(data []byte, b *graph.Builder) (LoadStats, error) {
	stats := LoadStats{Bytes: int64(len(data))}

	for start := 0; start < len(data); {
		end := bytes.IndexByte(data[start:], '\n')
		var line []byte
		if end < 0 {
			line = data[start:]
			start = len(data)
		} else {
			line = data[start : start+end]
			start += end + 1
		}
		stats.Lines++

		if err := loadLine(line, stats.Lines, b); err != nil {
			return stats, err
		}
		stats.Games++
	}

	stats.Players = b.NumPlayers()
	return stats, nil
}

func loadLine(line []byte, lineNo int, b *graph.Builder) error {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}

	if fields := bytes.Count(line, []byte{':'}) + 1; fields != 3 {
		return pkgerrors.NewParseError(lineNo, string(line), fmt.Sprintf("expected 3 fields, got %d", fields))
	}
	first := bytes.IndexByte(line, ':')
	second := first + 1 + bytes.IndexByte(line[first+1:], ':')
	white, black, code := line[:first], line[first+1:second], line[second+1:]

	if len(white) == 0 || len(black) == 0 {
		return pkgerrors.NewParseError(lineNo, string(line), "empty player name")
	}
	if len(code) != 1 {
		return pkgerrors.NewParseError(lineNo, string(line), "outcome must be a single character")
	}
	outcome, ok := graph.ParseOutcome(code[0])
	if !ok {
		return pkgerrors.NewParseError(lineNo, string(line), fmt.Sprintf("unknown outcome %q", code))
	}

	if _, err := b.AddGame(string(white), string(black), outcome); err != nil {
		return fmt.Errorf("line %d: %w", lineNo, err)
	}
	return nil
}

// LoadFile opens path, loads it into b and releases the buffer.
func LoadFile(path string, b *graph.Builder, logger utils.Logger) (LoadStats, error) {
	if logger == nil {
		logger = &utils.NullLogger{}
	}

	buf, err := Open(path)
	if err != nil {
		return LoadStats{}, err
	}
	defer buf.Close()

	logger.Debug("Loading %s (%d bytes, mapped=%v)", path, buf.Len(), buf.Mapped())

	stats, err := Load(buf.Bytes(), b)
	if err != nil {
		return stats, err
	}

	logger.Info("Loaded %d games between %d players from %s", stats.Games, stats.Players, path)
	return stats, nil
}
