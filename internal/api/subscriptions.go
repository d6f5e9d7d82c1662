package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"wavespush/internal/models"
)

type topicEntry struct {
	TopicURL  string    `json:"topic_url"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	address, ok := subscriberAddress(w, r)
	if !ok {
		return
	}

	subs, err := s.store.ListSubscriptions(r.Context(), address)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	topics := make([]topicEntry, 0, len(subs))
	for _, sub := range subs {
		topics = append(topics, topicEntry{
			TopicURL:  models.FormatTopicURL(sub.Topic, sub.Mode),
			Mode:      sub.Mode.String(),
			CreatedAt: sub.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string][]topicEntry{"topics": topics})
}

type topicsRequest struct {
	Topics []string `json:"topics"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	address, ok := subscriberAddress(w, r)
	if !ok {
		return
	}

	var req topicsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if len(req.Topics) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "topics is required"})
		return
	}

	topics := make([]models.TopicSubscription, 0, len(req.Topics))
	for _, raw := range req.Topics {
		topic, mode, err := models.ParseTopicURL(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		topics = append(topics, models.TopicSubscription{Topic: topic, Mode: mode})
	}

	if err := s.store.Subscribe(r.Context(), address, topics, s.limits); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "subscribed"})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	address, ok := subscriberAddress(w, r)
	if !ok {
		return
	}

	// An empty or absent body unsubscribes from everything.
	var req topicsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	topics := make([]models.Topic, 0, len(req.Topics))
	for _, raw := range req.Topics {
		topic, _, err := models.ParseTopicURL(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		topics = append(topics, topic)
	}

	if err := s.store.Unsubscribe(r.Context(), address, topics); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func subscriberAddress(w http.ResponseWriter, r *http.Request) (models.Address, bool) {
	address, err := models.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeStoreError(w, err)
		return "", false
	}
	return address, true
}
