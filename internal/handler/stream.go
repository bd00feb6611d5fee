package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"

	"genehub/internal/events"
)

const streamWriteTimeout = 5 * time.Second

// StreamHandler pushes hub events to dashboard websocket clients. The server
// only writes; reads are drained solely to detect the peer going away.
type StreamHandler struct {
	Hub          *events.Hub
	AllowOrigins []string
}

func (h *StreamHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/stream", h.stream)
}

// @Summary Live event stream (websocket)
// @Tags stream
// @Router /api/v1/stream [get]
func (h *StreamHandler) stream(c *gin.Context) {
	if h.Hub == nil {
		Error(c, http.StatusInternalServerError, "hub unavailable", nil)
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.AllowOrigins,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	var types map[string]struct{}
	if raw := strings.TrimSpace(c.Query("types")); raw != "" {
		types = make(map[string]struct{})
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types[t] = struct{}{}
			}
		}
	}

	ch, cancel := h.Hub.Subscribe(64)
	defer cancel()

	ctx := conn.CloseRead(c.Request.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if types != nil {
				if _, want := types[ev.Type]; !want {
					continue
				}
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, streamWriteTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, payload)
			cancelWrite()
			if err != nil {
				return
			}
		}
	}
}
