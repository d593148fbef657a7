package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"timerdash/internal/countdown"
	"timerdash/internal/ics"
	appLog "timerdash/internal/log"
	"timerdash/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, "list events", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, "get event", err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := decodeJSON(w, r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.svc.Create(r.Context(), ev)
	if err != nil {
		writeServiceError(w, "create event", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := decodeJSON(w, r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.svc.Update(r.Context(), mux.Vars(r)["id"], ev)
	if err != nil {
		writeServiceError(w, "update event", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, "delete event", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleEventStatus evaluates one event.
//
// GET /api/events/{id}/status?at=2025-03-11T10:00:00Z
//   - at: reference instant (RFC3339); defaults to now
func (s *Server) handleEventStatus(w http.ResponseWriter, r *http.Request) {
	at, _, err := s.parseAt(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, surfaced, err := s.svc.Status(r.Context(), mux.Vars(r)["id"], at)
	if err != nil {
		writeServiceError(w, "event status", err)
		return
	}
	writeJSON(w, http.StatusOK, newEntryDTO(entry, surfaced))
}

// handleDashboard returns every event bucketed into active, scheduled and
// past.
//
// GET /api/dashboard?at=2025-03-11T10:00:00Z
//   - at: reference instant (RFC3339). Without it a fresh scheduler
//     snapshot is served when available.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	at, explicit, err := s.parseAt(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !explicit {
		if d, ok := s.freshSnapshot(at); ok {
			writeJSON(w, http.StatusOK, newDashboardDTO(d))
			return
		}
	}

	d, err := s.svc.Dashboard(r.Context(), at)
	if err != nil {
		writeServiceError(w, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardDTO(d))
}

func (s *Server) freshSnapshot(now time.Time) (countdown.Dashboard, bool) {
	if s.snapshots == nil {
		return countdown.Dashboard{}, false
	}
	d, ok := s.snapshots.Latest()
	if !ok {
		return countdown.Dashboard{}, false
	}
	age := now.Sub(d.At)
	if age < 0 || age > s.snapshotMaxAge {
		return countdown.Dashboard{}, false
	}
	return d, true
}

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, "export calendar", err)
		return
	}
	body := ics.Export(list, s.svc.Evaluator(), s.svc.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

// handleImportICS creates events from an iCalendar document.
//
// POST /api/events/import
//   - text/calendar body: the calendar itself
//   - application/json body {"source": "<id>"}: fetched from the configured
//     ICS source with that id
//
// Imports are not atomic. When creating an event fails, the events created
// before it stay stored and are listed in the error response.
func (s *Server) handleImportICS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body []byte
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req importRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Source == "" {
			writeError(w, http.StatusBadRequest, "source is required")
			return
		}
		src, ok := s.cfg.ICSSource(req.Source)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown calendar source")
			return
		}
		fetched, err := s.fetcher.Fetch(ctx, ics.Source{ID: src.ID, URL: src.URL})
		if err != nil {
			appLog.Error("calendar fetch failed", err, "source", src.ID)
			writeError(w, http.StatusBadGateway, "failed to fetch calendar")
			return
		}
		body = fetched
	} else {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}
		body = raw
	}

	res, err := ics.Parse(bytes.NewReader(body), s.svc.Evaluator().Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar")
		return
	}

	resp := importResponse{Created: []model.Event{}, Skipped: res.Skipped}
	for _, ev := range res.Events {
		created, err := s.svc.Create(ctx, ev)
		if err != nil {
			status, msg := serviceErrorStatus("import event", err)
			resp.Error = msg
			writeJSON(w, status, resp)
			return
		}
		resp.Created = append(resp.Created, created)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// parseAt reads the optional "at" query parameter. explicit is false when
// it is absent and the service clock was used.
func (s *Server) parseAt(r *http.Request) (at time.Time, explicit bool, err error) {
	raw := r.URL.Query().Get("at")
	if raw == "" {
		return s.svc.Now(), false, nil
	}
	at, err = time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, errors.New("at must be an RFC3339 timestamp")
	}
	return at, true, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}
