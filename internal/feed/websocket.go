// internal/feed/websocket.go
package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Corphon/Diplomat/internal/models"
	"github.com/Corphon/Diplomat/internal/utils"
	"github.com/gorilla/websocket"
)

// WebSocketFeed reads comment batches from a websocket server. Every text message is a JSON
// object or array of {"id","text"} comments and becomes one batch.
type WebSocketFeed struct {
	url    string
	dialer *websocket.Dialer
	sink   Sink
	logger *utils.Logger
}

// NewWebSocketFeed creates a feed for url that registers comments with sink.
func NewWebSocketFeed(url string, sink Sink) *WebSocketFeed {
	return &WebSocketFeed{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		sink:   sink,
		logger: utils.GetLogger(),
	}
}

// Run dials the server and emits batches until the server closes the connection or ctx ends.
// A normal close ends the feed without error.
func (f *WebSocketFeed) Run(ctx context.Context, out chan<- []models.CommentID) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial feed %s: %w", f.url, err)
	}
	defer conn.Close()

	// ReadMessage does not observe ctx; closing the connection unblocks it.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	f.logger.Info("discovery feed connected", map[string]interface{}{"url": f.url})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				f.logger.Info("discovery feed closed", map[string]interface{}{"url": f.url})
				return nil
			}
			return fmt.Errorf("read feed: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		items, err := DecodeItems(data)
		if err != nil {
			f.logger.Warn("skipping malformed feed message", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}
		if err := emit(ctx, out, register(f.sink, items)); err != nil {
			return err
		}
	}
}
