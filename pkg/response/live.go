package response

import (
	"context"
	"net/http"
	"time"

	"anoa.com/fandomspace/pkg/live"
	"anoa.com/fandomspace/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are enforced by the CORS layer for plain requests
	},
}

// Live opens a subscription and streams every snapshot to a websocket as
// JSON. Errors from open are rendered as plain HTTP errors before the
// connection is upgraded.
func Live[T any](c *gin.Context, open func(ctx context.Context) (*live.Subscription[T], error)) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub, err := open(ctx)
	if err != nil {
		ResponseError(c, err)
		return
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to upgrade websocket")
		return
	}
	defer conn.Close()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case v, ok := <-sub.Updates():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(v); err != nil {
				logger.Log.WithError(err).Debug("live stream closed")
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}
