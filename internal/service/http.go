package service

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"filmpalette-backend/internal/calendar"
	"filmpalette-backend/internal/scrapers/letterboxd"
)

const (
	report_http_write  = "http.write"
	report_http_failed = "http.internal-error"
)

//go:embed static
var staticFiles embed.FS

// Handler returns the HTTP surface of the service, CORS included.
func (s *Service) Handler() (http.Handler, error) {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}
	connectPath, connectHandler, err := s.connectHandler()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /scrape", s.handleScrape)
	mux.HandleFunc("GET /calendar", s.handleCalendar)
	mux.HandleFunc("GET /calendar.ics", s.handleICS)
	mux.Handle("POST "+connectPath, connectHandler)
	mux.Handle("GET /", http.FileServerFS(static))

	return withCORS(s.allowedOrigins, mux), nil
}

// StatusOf maps a pipeline error to an HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, calendar.ErrInvalidYear):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, letterboxd.ErrNavigation):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	status := StatusOf(err)

	var msg string
	switch status {
	case http.StatusBadRequest:
		msg = err.Error()
	case http.StatusGatewayTimeout:
		msg = "timed out while reading the diary"
	case http.StatusBadGateway:
		msg = "could not load the diary listing"
	default:
		s.tel.ReportBroken(report_http_failed, err)
		msg = http.StatusText(http.StatusInternalServerError)
	}
	s.writeJSON(w, status, errorBody{Error: msg})
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		s.tel.ReportWarning(report_http_write, err)
	}
}

func (s *Service) handleScrape(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.Scrape(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("x-run-id", result.RunId)
	s.writeJSON(w, http.StatusOK, Records(result.Entries, req.Mode))
}

func (s *Service) handleCalendar(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}
	grid, result, err := s.Calendar(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("x-run-id", result.RunId)
	s.writeJSON(w, http.StatusOK, NewCalendarRecord(grid))
}

func (s *Service) handleICS(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := s.ICS(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("content-type", "text/calendar; charset=utf-8")
	w.Header().Set("content-disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-%d.ics", req.Username, req.Year)))
	_, err = w.Write(data)
	if err != nil {
		s.tel.ReportWarning(report_http_write, err)
	}
}
