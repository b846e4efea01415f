package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"gdformat/internal/churchdesk"
	"gdformat/internal/export"
	"gdformat/internal/format"
	appLog "gdformat/internal/log"
	"gdformat/internal/model"
)

// formatResponse is the JSON response shape for /api/format.
type formatResponse struct {
	Month   string             `json:"month"`
	From    time.Time          `json:"from"`
	To      time.Time          `json:"to"`
	Text    string             `json:"text"`
	Entries int                `json:"entries"`
	Skipped []model.SkippedRow `json:"skipped"`
}

// handleAPIFormat formats the services of one month from the configured
// collector.
//
// GET /api/format?month=2025-06
//   - month: defaults to the next calendar month
func (s *Server) handleAPIFormat(w http.ResponseWriter, r *http.Request) {
	if s.opts.Collector == nil {
		writeError(w, http.StatusServiceUnavailable, "no source configured")
		return
	}

	year, month := nextMonth(time.Now().In(s.loc))
	if m := strings.TrimSpace(r.URL.Query().Get("month")); m != "" {
		var err error
		year, month, err = churchdesk.ParseMonth(m)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	from, to := churchdesk.MonthRange(year, month, s.loc)

	appLog.Info("api format request", "month", from.Format("2006-01"))

	records, err := s.opts.Collector.Records(r.Context(), from, to)
	if err != nil {
		appLog.Error("api format: collect failed", err)
		writeError(w, http.StatusBadGateway, "failed to fetch services")
		return
	}

	res, err := s.formatter.Format(records)
	resp := formatResponse{
		Month:   from.Format("2006-01"),
		From:    from,
		To:      to,
		Text:    res.Text,
		Entries: res.Entries,
		Skipped: res.Skipped,
	}
	if resp.Skipped == nil {
		resp.Skipped = []model.SkippedRow{}
	}
	switch {
	case errors.Is(err, format.ErrNothingToFormat):
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.SetResult(res)
	writeJSON(w, http.StatusOK, resp)
}

// exportResponse is the JSON response shape for /api/export.
type exportResponse struct {
	Enabled bool           `json:"enabled"`
	Last    *export.Status `json:"last,omitempty"`
}

// handleAPIExport reports the state of the scheduled export.
func (s *Server) handleAPIExport(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Exporter == nil {
		writeJSON(w, http.StatusOK, exportResponse{Enabled: false})
		return
	}
	resp := exportResponse{Enabled: true}
	if st, ok := s.opts.Exporter.Last(); ok {
		resp.Last = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

func nextMonth(now time.Time) (int, time.Month) {
	n := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	return n.Year(), n.Month()
}
