package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event is a frame received from the hub.
type Event struct {
	Event     string                 `json:"event"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// Listener subscribes to the hub over a websocket and feeds every event into
// an Aggregator. OnEvent, when set, sees each raw event in arrival order.
type Listener struct {
	URL        string
	Token      string
	Aggregator *Aggregator
	OnEvent    func(Event)
	Dialer     *websocket.Dialer
}

// Run dials the hub and reads until ctx is cancelled or the connection drops.
// It does not reconnect; events sent while no listener is connected are lost.
func (l *Listener) Run(ctx context.Context) error {
	dialer := l.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := http.Header{}
	if l.Token != "" {
		header.Set("Authorization", "Bearer "+l.Token)
	}
	conn, resp, err := dialer.DialContext(ctx, l.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %s: %w", l.URL, resp.Status, err)
		}
		return fmt.Errorf("dial %s: %w", l.URL, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Debug().Err(err).Msg("notifications: undecodable frame")
			continue
		}
		if l.OnEvent != nil {
			l.OnEvent(ev)
		}
		if l.Aggregator != nil {
			l.Aggregator.Ingest(ev.Event, ev.Data)
		}
	}
}
