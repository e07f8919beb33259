package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tripcart/internal/database"
	"tripcart/internal/models"
)

var errRecordNotFound = database.ErrRecordNotFound

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"checks": results})
}

func (s *HTTPServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := decodeJSON(r, &body, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	view, err := s.svc.CreateSession(r.Context(), strings.TrimSpace(body.UserID))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleResetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.ResetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleSelectFlight(w http.ResponseWriter, r *http.Request) {
	var sel models.FlightSelection
	if err := decodeJSON(r, &sel, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.respondView(w, r)(s.svc.SelectFlight(r.Context(), r.PathValue("id"), sel))
}

func (s *HTTPServer) handleSelectHotel(w http.ResponseWriter, r *http.Request) {
	var sel models.HotelSelection
	if err := decodeJSON(r, &sel, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.respondView(w, r)(s.svc.SelectHotel(r.Context(), r.PathValue("id"), sel))
}

func (s *HTTPServer) handleSelectHostel(w http.ResponseWriter, r *http.Request) {
	var sel models.HostelSelection
	if err := decodeJSON(r, &sel, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.respondView(w, r)(s.svc.SelectHostel(r.Context(), r.PathValue("id"), sel))
}

func (s *HTTPServer) handleSelectCab(w http.ResponseWriter, r *http.Request) {
	var sel models.CabSelection
	if err := decodeJSON(r, &sel, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.respondView(w, r)(s.svc.SelectCab(r.Context(), r.PathValue("id"), sel))
}

func (s *HTTPServer) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Stage models.Stage `json:"stage"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.respondView(w, r)(s.svc.Navigate(r.Context(), r.PathValue("id"), body.Stage))
}

func (s *HTTPServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, r)(s.svc.ConfirmBooking(r.Context(), r.PathValue("id")))
}

type payRequest struct {
	models.PaymentRequest
	UserID string `json:"user_id,omitempty"`
}

func (s *HTTPServer) handlePay(w http.ResponseWriter, r *http.Request) {
	var body payRequest
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	out, err := s.svc.Pay(r.Context(), r.PathValue("id"), strings.TrimSpace(body.UserID), body.PaymentRequest)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleSearchFlights(w http.ResponseWriter, r *http.Request) {
	var req models.FlightSearchRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.svc.SearchFlights(r.Context(), r.PathValue("id"), req)
	if err != nil {
		// деградированный ответ: пустой список рейсов и сообщение
		if res != nil {
			writeJSON(w, statusFor(err), map[string]any{
				"error":   err.Error(),
				"flights": res.Flights,
				"stale":   res.Stale,
				"notice":  res.Notice,
			})
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handlePredictions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	preds, err := s.svc.Predictions(r.Context(), q.Get("origin"), q.Get("destination"), q.Get("date"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": preds})
}

func (s *HTTPServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *HTTPServer) handleItinerary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var buf bytes.Buffer
	if err := s.svc.ExportItinerary(r.Context(), id, &buf); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "itinerary_"+id+".xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func bookingID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	rec, err := s.svc.GetBookingRecord(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *HTTPServer) handleUserBookings(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.ListUserBookings(r.Context(), r.PathValue("userID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": recs})
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	rec, err := s.svc.CancelBooking(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *HTTPServer) handleFailedMirrorTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.svc.FailedMirrorTasks(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// respondView writes a session view or the mapped error.
func (s *HTTPServer) respondView(w http.ResponseWriter, r *http.Request) func(v any, err error) {
	return func(v any, err error) {
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}
