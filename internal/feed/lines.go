// internal/feed/lines.go
package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/Corphon/Diplomat/internal/models"
	"github.com/Corphon/Diplomat/internal/utils"
)

const maxLineBytes = 1 << 20

// ReadLines parses a JSON-lines stream of comments. Blank lines are skipped.
func ReadLines(r io.Reader) ([]Item, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var items []Item
	line := 0
	for scanner.Scan() {
		line++
		batch, err := DecodeItems(scanner.Bytes())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, batch...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read comments: %w", err)
	}
	return items, nil
}

// LinesFeed replays a JSON-lines stream as live discovery, one batch per line.
type LinesFeed struct {
	r      io.Reader
	sink   Sink
	logger *utils.Logger
}

// NewLinesFeed creates a feed over r that registers comments with sink.
func NewLinesFeed(r io.Reader, sink Sink) *LinesFeed {
	return &LinesFeed{r: r, sink: sink, logger: utils.GetLogger()}
}

// Run emits one batch per non-blank line until EOF. Malformed lines are logged and skipped.
func (f *LinesFeed) Run(ctx context.Context, out chan<- []models.CommentID) error {
	scanner := bufio.NewScanner(f.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line++
		items, err := DecodeItems(scanner.Bytes())
		if err != nil {
			f.logger.Warn("skipping malformed feed line", map[string]interface{}{
				"line":  line,
				"error": err.Error(),
			})
			continue
		}
		if err := emit(ctx, out, register(f.sink, items)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read feed: %w", err)
	}
	return nil
}
