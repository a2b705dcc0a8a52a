package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"fstours/internal/events"
	"fstours/internal/logging"
	"fstours/internal/tours"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Welcome to the FS Tours API\n")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]string{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Tours.

func (s *Server) handleListTours(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListTours(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetTour(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.GetTour(r.Context(), tourIDParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListTourLegs(w http.ResponseWriter, r *http.Request) {
	legs, err := s.svc.ListTourLegs(r.Context(), tourIDParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, legs)
}

func (s *Server) handleCreateTour(w http.ResponseWriter, r *http.Request) {
	var in tours.TourInput
	if !decodeBody(w, r, &in) {
		return
	}

	t, err := s.svc.CreateTour(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tour_id": t.ID})
}

func (s *Server) handleUpdateTour(w http.ResponseWriter, r *http.Request) {
	var in tours.TourUpdate
	if !decodeBody(w, r, &in) {
		return
	}

	if err := s.svc.UpdateTour(r.Context(), tourIDParam(r), in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDeleteTour(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTour(r.Context(), tourIDParam(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Legs.

func (s *Server) handleListLegs(w http.ResponseWriter, r *http.Request) {
	legs, err := s.svc.ListLegs(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, legs)
}

func (s *Server) handleGetLeg(w http.ResponseWriter, r *http.Request) {
	id, ok := legID(w, r)
	if !ok {
		return
	}
	leg, err := s.svc.GetLeg(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, leg)
}

func (s *Server) handleCreateLeg(w http.ResponseWriter, r *http.Request) {
	var in tours.LegInput
	if !decodeBody(w, r, &in) {
		return
	}

	id, err := s.svc.CreateLeg(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (s *Server) handleUpdateLeg(w http.ResponseWriter, r *http.Request) {
	id, ok := legID(w, r)
	if !ok {
		return
	}
	var in tours.LegInput
	if !decodeBody(w, r, &in) {
		return
	}

	if err := s.svc.UpdateLeg(r.Context(), id, in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDeleteLeg(w http.ResponseWriter, r *http.Request) {
	id, ok := legID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteLeg(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Tour leg deleted"})
}

// History.

func (s *Server) handleHistory(entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.history == nil {
			writeError(w, http.StatusNotFound, "History is not enabled")
			return
		}
		evs, err := s.history.History(r.Context(), entity, tourIDParam(r))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if evs == nil {
			evs = []events.Event{}
		}
		writeJSON(w, http.StatusOK, evs)
	}
}

// Helper functions.

// tourIDParam returns the decoded tour id route parameter. chi matches on
// the escaped path when one is present, so "A%2FB" must become "A/B".
func tourIDParam(r *http.Request) string {
	raw := chi.URLParam(r, "id")
	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}

// legID parses the numeric leg id route parameter. The route pattern only
// admits digits, so a failure here is an out-of-range id.
func legID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, tours.MsgLegNotFound)
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, tours.MsgMissingFields)
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

func statusFor(k tours.Kind) int {
	switch k {
	case tours.KindValidation:
		return http.StatusBadRequest
	case tours.KindNotFound:
		return http.StatusNotFound
	case tours.KindConflict:
		return http.StatusConflict
	case tours.KindUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var te *tours.Error
	if errors.As(err, &te) {
		writeError(w, statusFor(te.Kind), te.Error())
		return
	}
	logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
