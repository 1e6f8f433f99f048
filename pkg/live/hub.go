// Package live turns committed writes into continuously refreshed query results.
//
// Every command that commits calls Hub.Notify with the tables it touched.
// Observers register a fetch function together with the tables it reads; the
// hub re-runs the fetch after each relevant commit and pushes the new snapshot.
package live

import (
	"context"
	"encoding/json"
	"errors"

	"anoa.com/fandomspace/pkg/logger"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const changesTopic = "store.changes"

var ErrHubClosed = errors.New("live hub is closed")

type Hub struct {
	pubsub *gochannel.GoChannel
}

func NewHub() *Hub {
	return &Hub{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 16},
			watermill.NopLogger{},
		),
	}
}

// Notify announces a commit that changed the given tables. Safe on a nil hub.
func (h *Hub) Notify(tables ...string) {
	if h == nil || len(tables) == 0 {
		return
	}

	payload, err := json.Marshal(tables)
	if err != nil {
		logger.Log.WithError(err).Error("live: failed to encode change set")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := h.pubsub.Publish(changesTopic, msg); err != nil {
		logger.Log.WithError(err).WithField("tables", tables).Warn("live: failed to publish change set")
	}
}

func (h *Hub) subscribe(ctx context.Context) (<-chan *message.Message, error) {
	if h == nil {
		return nil, ErrHubClosed
	}
	return h.pubsub.Subscribe(ctx, changesTopic)
}

// Close stops delivery to every open subscription.
func (h *Hub) Close() error {
	if h == nil {
		return nil
	}
	return h.pubsub.Close()
}

func decodeTables(payload []byte) []string {
	var tables []string
	if err := json.Unmarshal(payload, &tables); err != nil {
		return nil
	}
	return tables
}

func touches(changed, deps []string) bool {
	if len(deps) == 0 {
		return true
	}
	for _, c := range changed {
		for _, d := range deps {
			if c == d {
				return true
			}
		}
	}
	return false
}
