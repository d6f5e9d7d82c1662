package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"wavespush/internal/config"
	"wavespush/internal/models"
	"wavespush/internal/repository"
)

// Store is the persistence surface the API needs. *repository.Repository
// satisfies it.
type Store interface {
	Ping(ctx context.Context) error

	RegisterDevice(ctx context.Context, device *models.Device) error
	UpdateDevice(ctx context.Context, uid int, fcmUID, language *string, utcOffsetSeconds *int) error
	UnregisterDevice(ctx context.Context, uid int) error

	ListSubscriptions(ctx context.Context, address models.Address) ([]models.Subscription, error)
	Subscribe(ctx context.Context, address models.Address, topics []models.TopicSubscription, limits models.SubscriptionLimits) error
	Unsubscribe(ctx context.Context, address models.Address, topics []models.Topic) error

	QueueStats(ctx context.Context, maxAttempts int) (models.QueueStats, error)
	FailedMessages(ctx context.Context, maxAttempts, limit int) ([]models.QueuedMessage, error)
	RequeueMessage(ctx context.Context, uid int64) error
}

// Server is the HTTP API process: device and subscription CRUD for wallet
// clients plus a small admin surface for queue inspection.
type Server struct {
	store       Store
	limits      models.SubscriptionLimits
	maxAttempts int
	cfg         config.APIConfig
}

func NewServer(store Store, limits models.SubscriptionLimits, maxAttempts int, cfg config.APIConfig) *Server {
	return &Server{store: store, limits: limits, maxAttempts: maxAttempts, cfg: cfg}
}

// Router assembles the route table. Admin routes are mounted only when an
// admin secret is configured.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")
	r.HandleFunc("/v1/status", s.handleStatus).Methods("GET", "OPTIONS")

	r.HandleFunc("/v1/devices", s.handleRegisterDevice).Methods("POST", "OPTIONS")
	r.HandleFunc("/v1/devices/{uid}", s.handleUpdateDevice).Methods("PATCH", "OPTIONS")
	r.HandleFunc("/v1/devices/{uid}", s.handleUnregisterDevice).Methods("DELETE", "OPTIONS")

	r.HandleFunc("/v1/subscriptions/{address}", s.handleListSubscriptions).Methods("GET", "OPTIONS")
	r.HandleFunc("/v1/subscriptions/{address}", s.handleSubscribe).Methods("POST", "OPTIONS")
	r.HandleFunc("/v1/subscriptions/{address}", s.handleUnsubscribe).Methods("DELETE", "OPTIONS")

	if s.cfg.AdminJWTSecret != "" {
		admin := r.PathPrefix("/v1/admin").Subrouter()
		admin.Use(adminAuthMiddleware(s.cfg.AdminJWTSecret))
		admin.HandleFunc("/messages/failed", s.handleFailedMessages).Methods("GET", "OPTIONS")
		admin.HandleFunc("/messages/{uid}/requeue", s.handleRequeueMessage).Methods("POST", "OPTIONS")
		admin.HandleFunc("/ws", s.handleAdminWebSocket).Methods("GET")
	} else {
		log.Println("[api] warning: ADMIN_JWT_SECRET not set, admin routes disabled")
	}

	var handler http.Handler = r
	handler = jsonMiddleware(handler)
	handler = rateLimitMiddleware(s.cfg, handler)
	handler = loggingMiddleware(handler)
	return handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	// An unreachable database still yields the documented body shape; the
	// queue stats are simply omitted because they come from the same database.
	if err := s.store.Ping(r.Context()); err != nil {
		log.Printf("[api] warning: database ping failed: %v", err)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "degraded",
			"database": "unreachable",
		})
		return
	}

	stats, err := s.store.QueueStats(r.Context(), s.maxAttempts)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"database": "ok",
		"queue":    stats,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// errorResponse is the uniform error body. Code is set only for limit
// violations.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeStoreError maps repository and model errors onto status codes:
// validation → 400, limit → 400 with the wire code, not found → 404,
// everything else → 500.
func writeStoreError(w http.ResponseWriter, err error) {
	var validation *models.ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Reason})
		return
	}
	var limit *models.LimitExceededError
	if errors.As(err, &limit) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: limit.Error(),
			Code:  models.LimitExceededCode,
		})
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	log.Printf("[api] internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
