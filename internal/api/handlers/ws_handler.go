package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Corgi239/Speech-Command-Recognition/internal/services"
	"github.com/Corgi239/Speech-Command-Recognition/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

// RecordingStream is the Redis stream finalized recordings are queued on.
const RecordingStream = "recordings:stream"

type WSHandler struct {
	recordings services.RecordingService
	redis      *redis.Client
	upgrader   websocket.Upgrader
}

func NewWSHandler(recordings services.RecordingService, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		recordings: recordings,
		redis:      rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type       string           `json:"type"`
	ChunkIndex int64            `json:"chunk_index"`
	Samples    map[string]uint8 `json:"samples"`

	// finalize/cancel -> no fields
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

// RecordingWS streams sparse-sample chunks from the browser recorder. Chunks
// are buffered until a "finalize" message, which queues the recording for
// classification. Worker results come back over Redis Pub/Sub and are
// forwarded to the socket.
func (h *WSHandler) RecordingWS(c *gin.Context) {
	recordingID := c.Param("recording_id")
	if recordingID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.RecordingWS", "missing recording_id", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Subscribe Redis -> WS
	resultCh := "recording:" + recordingID + ":result"
	statusCh := "recording:" + recordingID + ":status"

	pubsub := h.redis.Subscribe(ctx, resultCh, statusCh)
	defer pubsub.Close()

	// reader: WS -> Mongo buffer (+ Redis Stream on finalize)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"invalid json"}`))
				continue
			}

			switch msg.Type {
			case "chunk":
				if msg.ChunkIndex < 0 {
					_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"chunk_index must be >= 0"}`))
					continue
				}
				if len(msg.Samples) == 0 {
					_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"samples required"}`))
					continue
				}

				if _, err := h.recordings.AppendChunk(ctx, recordingID, msg.ChunkIndex, msg.Samples); err != nil {
					_ = wc.writeText([]byte(`{"type":"error","code":"INTERNAL","message":"failed to buffer chunk"}`))
					continue
				}

				_ = wc.writeText([]byte(`{"type":"ack","chunk_index":` + strconv.FormatInt(msg.ChunkIndex, 10) + `}`))

			case "finalize":
				if err := h.redis.XAdd(ctx, &redis.XAddArgs{
					Stream: RecordingStream,
					Values: map[string]any{
						"recording_id": recordingID,
						"ts_unix":      strconv.FormatInt(time.Now().UTC().Unix(), 10),
					},
				}).Err(); err != nil {
					_ = wc.writeText([]byte(`{"type":"error","code":"UNAVAILABLE","message":"failed to enqueue recording"}`))
					continue
				}

				_ = h.redis.Publish(ctx, statusCh, `{"type":"status","status":"queued","message":"recording queued"}`).Err()

			case "cancel":
				if err := h.recordings.Cancel(ctx, recordingID); err != nil {
					_ = wc.writeText([]byte(`{"type":"error","code":"INTERNAL","message":"failed to discard recording"}`))
				}
				_ = h.redis.Publish(ctx, statusCh, `{"type":"status","status":"cancelled","message":"recording cancelled"}`).Err()
				return

			default:
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"unknown message type"}`))
			}
		}
	}()

	// writer: Redis Pub/Sub -> WS
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		default:
			m, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				return
			}
			// forward as-is (payload expected JSON string)
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}
