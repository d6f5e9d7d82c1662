package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"wavespush/internal/models"
)

type registerDeviceRequest struct {
	Address          string `json:"address"`
	FCMUID           string `json:"fcm_uid"`
	Language         string `json:"language"`
	UTCOffsetSeconds int    `json:"utc_offset_seconds"`
}

func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	address, err := models.ParseAddress(req.Address)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if req.FCMUID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "fcm_uid is required"})
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}

	device := &models.Device{
		SubscriberAddress: address,
		FCMUID:            req.FCMUID,
		Language:          req.Language,
		UTCOffsetSeconds:  req.UTCOffsetSeconds,
	}
	if err := s.store.RegisterDevice(r.Context(), device); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"uid": device.UID})
}

type updateDeviceRequest struct {
	FCMUID           *string `json:"fcm_uid"`
	Language         *string `json:"language"`
	UTCOffsetSeconds *int    `json:"utc_offset_seconds"`
}

func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	uid, ok := deviceUID(w, r)
	if !ok {
		return
	}

	var req updateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if req.FCMUID == nil && req.Language == nil && req.UTCOffsetSeconds == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "nothing to update"})
		return
	}

	if err := s.store.UpdateDevice(r.Context(), uid, req.FCMUID, req.Language, req.UTCOffsetSeconds); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleUnregisterDevice(w http.ResponseWriter, r *http.Request) {
	uid, ok := deviceUID(w, r)
	if !ok {
		return
	}
	if err := s.store.UnregisterDevice(r.Context(), uid); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func deviceUID(w http.ResponseWriter, r *http.Request) (int, bool) {
	uid, err := strconv.Atoi(mux.Vars(r)["uid"])
	if err != nil || uid <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid device uid"})
		return 0, false
	}
	return uid, true
}
