// internal/feed/items.go
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Corphon/Diplomat/internal/models"
	"github.com/google/uuid"
)

// Item is one comment as carried by a discovery feed.
type Item struct {
	ID   models.CommentID `json:"id"`
	Text string           `json:"text"`
}

// Sink receives the handles a feed discovers before their ids are announced.
type Sink interface {
	Add(id models.CommentID, text string)
}

// Source produces batches of newly appearing comment ids until it is exhausted or ctx ends.
type Source interface {
	Run(ctx context.Context, out chan<- []models.CommentID) error
}

// DecodeItems parses a JSON object or array of objects. Items without an id get a generated one.
func DecodeItems(data []byte) ([]Item, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var items []Item
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode comment batch: %w", err)
		}
	case '{':
		var item Item
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("decode comment: %w", err)
		}
		items = []Item{item}
	default:
		return nil, fmt.Errorf("decode comment: expected JSON object or array")
	}

	for i := range items {
		if strings.TrimSpace(string(items[i].ID)) == "" {
			items[i].ID = models.CommentID(uuid.New().String())
		}
	}
	return items, nil
}

// register hands items to sink and returns their ids in order.
func register(sink Sink, items []Item) []models.CommentID {
	ids := make([]models.CommentID, 0, len(items))
	for _, item := range items {
		if sink != nil {
			sink.Add(item.ID, item.Text)
		}
		ids = append(ids, item.ID)
	}
	return ids
}

// emit sends a batch unless ctx ends first.
func emit(ctx context.Context, out chan<- []models.CommentID, ids []models.CommentID) error {
	if len(ids) == 0 {
		return nil
	}
	select {
	case out <- ids:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
