package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/SalesDrop/internal/model"
	"github.com/dharsanguruparan/SalesDrop/internal/repository"
	"github.com/dharsanguruparan/SalesDrop/internal/signing"
)

const maxListLimit = 500

type listResponse struct {
	Items []model.Summary `json:"items"`
	Count int             `json:"count"`
}

type linkResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	reports, err := s.reports.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list reports", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	items := make([]model.Summary, 0, len(reports))
	for _, rep := range reports {
		items = append(items, rep.Summary())
	}
	s.respondJSON(w, http.StatusOK, listResponse{Items: items, Count: len(items)})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.lookup(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, report.Serialize())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	report, ok := s.lookup(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, report.Summary())
}

func (s *Server) handleSourceURL(w http.ResponseWriter, r *http.Request) {
	report, ok := s.lookup(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	expires := s.now().Add(s.cfg.SignedURLTTL)
	link, err := s.objects.PresignURL(r.Context(), report.Location(), s.cfg.SignedURLTTL)
	if err != nil {
		loc := report.Location()
		s.logger.Error("presign source", "report_id", report.ID(), "bucket", loc.Bucket, "key", loc.Key, "error", err)
		s.respondError(w, http.StatusBadGateway, "failed to generate url")
		return
	}
	s.respondJSON(w, http.StatusOK, linkResponse{URL: link, ExpiresAt: expires.UTC()})
}

func (s *Server) handleSignedURL(w http.ResponseWriter, r *http.Request) {
	report, ok := s.lookup(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	q, expires := s.signer.Query(report.ID(), s.now(), s.cfg.SignedURLTTL)
	link := url.URL{Path: "/reports/export", RawQuery: q.Encode()}
	s.respondJSON(w, http.StatusOK, linkResponse{URL: link.String(), ExpiresAt: expires.UTC()})
}

// handleExport serves the serialized report behind a signed link.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := s.signer.Verify(r.URL.Query(), s.now())
	switch {
	case errors.Is(err, signing.ErrMalformed):
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.respondError(w, http.StatusUnauthorized, err.Error())
		return
	}
	report, ok := s.lookup(w, r, id)
	if !ok {
		return
	}
	body, err := json.MarshalIndent(report.Serialize(), "", "  ")
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to encode report")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.ID()+".json"))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("write export", "report_id", id, "error", err)
	}
}

// lookup writes 404 or 500 itself and reports whether the caller may continue.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, id string) (*model.SalesReport, bool) {
	report, found, err := s.reports.FindByID(r.Context(), id)
	if err != nil {
		s.logger.Error("find report", "report_id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load report")
		return nil, false
	}
	if !found {
		s.respondError(w, http.StatusNotFound, "report not found")
		return nil, false
	}
	return report, true
}

func parseFilter(q url.Values) (repository.ReportFilter, error) {
	var f repository.ReportFilter
	switch status := model.ReportStatus(q.Get("status")); status {
	case "", model.StatusSuccess, model.StatusFailed:
		f.Status = status
	default:
		return f, fmt.Errorf("invalid status %q", status)
	}
	f.Bucket = q.Get("bucket")
	f.Key = q.Get("key")

	var err error
	if f.From, err = parseTime("from", q.Get("from")); err != nil {
		return f, err
	}
	if f.To, err = parseTime("to", q.Get("to")); err != nil {
		return f, err
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, errors.New("to must not precede from")
	}
	if f.Limit, err = parseCount("limit", q.Get("limit")); err != nil {
		return f, err
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset, err = parseCount("offset", q.Get("offset")); err != nil {
		return f, err
	}
	return f, nil
}

func parseTime(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s %q: want YYYY-MM-DD or RFC 3339", name, v)
}

func parseCount(name, v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}
