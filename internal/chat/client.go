package chat

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"driftchat/internal/auth"
	"driftchat/internal/metrics"
	"driftchat/internal/middleware"
	"driftchat/internal/pipeline"
	"driftchat/internal/registry"
	"driftchat/internal/types"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 10 * time.Second

	// Enough headroom for a text body plus ten attachment records.
	maxFrameSize = 64 * 1024
)

// Client bridges one live websocket connection for one authenticated user to
// the registry and the pipeline. It owns exactly two loops, readPump and
// writePump; the session ends as soon as either one does.
type Client struct {
	Conn      *websocket.Conn
	Sub       *registry.Subscription
	Pipeline  *pipeline.Pipeline
	Principal auth.Principal
	Limiter   *middleware.RateLimiter

	once sync.Once
}

// Run starts both pumps and blocks until the session is fully torn down.
// The first pump to exit wins: close() cancels the other by closing the
// transport and the subscription, so a half-closed socket can never wedge
// the session open.
func (c *Client) Run() {
	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	done := make(chan struct{}, 2)
	go func() {
		c.writePump()
		done <- struct{}{}
	}()
	go func() {
		c.readPump()
		done <- struct{}{}
	}()

	<-done
	c.close()
	<-done

	log.Printf("[SESSION] Closed for %s", c.Principal.Username)
}

func (c *Client) close() {
	c.once.Do(func() {
		c.Sub.Close()
		c.Conn.Close()
	})
}

// writePump is the outbound loop: it drains the fan-out subscription and
// writes each payload as one text frame. It exits when the subscription is
// closed or a write fails (peer gone), and keeps the peer alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-c.Sub.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump is the inbound loop: each well-formed frame is decoded and handed
// to the pipeline. A bad frame or a rejected submit is logged and skipped;
// only a close frame or a transport error ends the loop.
func (c *Client) readPump() {
	c.Conn.SetReadLimit(maxFrameSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[SESSION] Unexpected close from %s: %v", c.Principal.Username, err)
			}
			return
		}

		if c.Limiter != nil && !c.Limiter.Allow() {
			log.Printf("[SESSION] Rate limit exceeded for %s, frame dropped", c.Principal.Username)
			continue
		}

		var in types.Inbound
		if err := json.Unmarshal(frame, &in); err != nil {
			log.Printf("[SESSION] Discarding malformed frame from %s: %v", c.Principal.Username, err)
			continue
		}

		if _, err := c.Pipeline.Submit(context.Background(), c.Principal, &in); err != nil {
			log.Printf("[SESSION] Submit failed for %s: %v", c.Principal.Username, err)
			continue
		}
	}
}
