package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// failedMessagesLimit caps one admin listing page.
const failedMessagesLimit = 100

func (s *Server) handleFailedMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.store.FailedMessages(r.Context(), s.maxAttempts, failedMessagesLimit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"count":    len(messages),
	})
}

func (s *Server) handleRequeueMessage(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(mux.Vars(r)["uid"], 10, 64)
	if err != nil || uid <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid message uid"})
		return
	}
	if err := s.store.RequeueMessage(r.Context(), uid); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "requeued"})
}

// queueStatsPushInterval is how often the admin feed pushes a snapshot.
const queueStatsPushInterval = 5 * time.Second

var adminUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Auth happens in the JWT middleware; the origin adds nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleAdminWebSocket streams queue statistics to an admin client every few
// seconds until the client goes away.
func (s *Server) handleAdminWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := adminUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[api] warning: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Drain client frames so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(queueStatsPushInterval)
	defer ticker.Stop()

	for {
		stats, err := s.store.QueueStats(r.Context(), s.maxAttempts)
		if err != nil {
			log.Printf("[api] warning: queue stats for websocket feed: %v", err)
		} else {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(map[string]interface{}{
				"queue":        stats,
				"generated_at": time.Now().UTC().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}

		select {
		case <-ticker.C:
		case <-r.Context().Done():
			return
		}
	}
}
