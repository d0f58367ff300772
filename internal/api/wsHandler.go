package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"driftchat/internal/chat"
	"driftchat/internal/middleware"
	"driftchat/internal/pipeline"
	"driftchat/internal/registry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 512,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades an authenticated request to a websocket connection and
// runs a session for it: attach a fresh receive end to the user's fan-out
// entry, start the pump pair.
func ServeWS(reg *registry.Registry, pipe *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFrom(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error for %s: %v", principal.Username, err)
			return
		}

		client := &chat.Client{
			Conn:      conn,
			Sub:       reg.Subscribe(principal.Username),
			Pipeline:  pipe,
			Principal: principal,
			Limiter:   middleware.NewRatelimiter(5, 500*time.Millisecond),
		}

		log.Printf("[WS] Session opened for %s", principal.Username)
		go client.Run()
	}
}
