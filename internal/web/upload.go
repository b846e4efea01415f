package web

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"gdformat/internal/config"
	"gdformat/internal/format"
	appLog "gdformat/internal/log"
	"gdformat/internal/model"
	"gdformat/internal/sheet"
)

// maxUploadBytes caps the uploaded spreadsheet.
const maxUploadBytes = 10 << 20

// downloadName is the file name offered by /download.
const downloadName = config.DefaultOutput

// pageData feeds every HTML template.
type pageData struct {
	Title   string
	Error   string
	Columns []string
	Entries int
	Text    string
	Skipped []model.SkippedRow
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	if data.Title == "" {
		data.Title = "Gottesdienste formatieren"
	}
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		appLog.Error("template render failed", err, "template", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) columns() []string {
	c := s.cfg.Columns
	return []string{c.Start, c.Title, c.Location, c.Officiant, c.Parish}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "index", pageData{Columns: s.columns()})
}

// handleUpload reads an .xlsx or .csv export from the "file" form field,
// formats it and shows the result.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	fail := func(status int, msg string, skipped []model.SkippedRow) {
		s.render(w, status, "index", pageData{Error: msg, Columns: s.columns(), Skipped: skipped})
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(http.StatusRequestEntityTooLarge, "Die Datei ist zu groß (höchstens 10 MB).", nil)
			return
		}
		fail(http.StatusBadRequest, "Die Anfrage konnte nicht gelesen werden.", nil)
		return
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		fail(http.StatusBadRequest, "Bitte eine Datei auswählen.", nil)
		return
	}
	defer file.Close()

	records, err := sheet.Read(hdr.Filename, file, sheet.Options{
		Columns:  s.cfg.Columns,
		Location: s.loc,
		SourceID: hdr.Filename,
	})
	if err != nil {
		appLog.Warn("upload rejected", "file", hdr.Filename, "err", err.Error())
		fail(http.StatusBadRequest, sheetErrorText(err), nil)
		return
	}

	res, err := s.formatter.Format(records)
	if errors.Is(err, format.ErrNothingToFormat) {
		fail(http.StatusUnprocessableEntity, "Die Datei enthält keine gültigen Gottesdienste.", res.Skipped)
		return
	}
	if err != nil {
		appLog.Error("format failed", err, "file", hdr.Filename)
		fail(http.StatusInternalServerError, "Die Datei konnte nicht formatiert werden.", nil)
		return
	}

	s.SetResult(res)
	appLog.Info("upload formatted", "file", hdr.Filename, "entries", res.Entries, "skipped", len(res.Skipped))
	s.render(w, http.StatusOK, "result", pageData{
		Entries: res.Entries,
		Text:    res.Text,
		Skipped: res.Skipped,
	})
}

// sheetErrorText turns reader errors into messages for the form.
func sheetErrorText(err error) string {
	var missing *sheet.MissingColumnsError
	switch {
	case errors.As(err, &missing):
		return "Fehlende Spalten: " + strings.Join(missing.Missing, ", ")
	case errors.Is(err, sheet.ErrUnsupportedFormat):
		return "Nicht unterstütztes Dateiformat. Bitte eine .xlsx- oder .csv-Datei hochladen."
	case errors.Is(err, sheet.ErrNoHeader):
		return "Die Datei ist leer."
	default:
		return "Die Datei konnte nicht gelesen werden."
	}
}

// handleDownload returns the posted (possibly edited) text as a file. An
// empty form falls back to the last result.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	text := strings.ReplaceAll(r.PostFormValue("text"), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		last, ok := s.lastResult()
		if !ok {
			http.Error(w, "Kein Ergebnis zum Herunterladen vorhanden.", http.StatusNotFound)
			return
		}
		text = last.Text
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadName+`"`)
	_, _ = w.Write([]byte(text))
}

// handlePreview shows the last result with data-ready="true" so the proof
// capture knows when to shoot.
func (s *Server) handlePreview(w http.ResponseWriter, _ *http.Request) {
	last, _ := s.lastResult()
	s.render(w, http.StatusOK, "preview", pageData{
		Title:   "Vorschau",
		Entries: last.Entries,
		Text:    last.Text,
	})
}
