package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"optionsradar/internal/app"
	"optionsradar/internal/demo"
	"optionsradar/internal/domain"
	"optionsradar/internal/parse"
	"optionsradar/internal/signal"
	"optionsradar/internal/store"
	"optionsradar/internal/view"
)

// maxUploadBytes bounds upload request bodies.
const maxUploadBytes = 32 << 20

// Server serves the dashboard HTTP API.
type Server struct {
	app      *app.App
	archive  *store.Archive
	log      *slog.Logger
	pageSize int

	demoURL    string
	demoClient *http.Client
}

// NewServer creates a dashboard API server around the application state.
func NewServer(a *app.App, archive *store.Archive, log *slog.Logger, pageSize int, demoURL string, demoTimeout time.Duration) *Server {
	if demoTimeout <= 0 {
		demoTimeout = demo.DefaultTimeout
	}
	return &Server{
		app:        a,
		archive:    archive,
		log:        log,
		pageSize:   pageSize,
		demoURL:    demoURL,
		demoClient: &http.Client{Timeout: demoTimeout},
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/signals", s.handleSignals)
	mux.HandleFunc("GET /api/analytics", s.handleAnalytics)
	mux.HandleFunc("GET /api/records", s.handleRecords)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/demo", s.handleDemo)

	mux.HandleFunc("GET /api/watchlist", s.handleGetWatchlist)
	mux.HandleFunc("DELETE /api/watchlist", s.handleClearWatchlist)
	mux.HandleFunc("GET /api/watchlist/export", s.handleExportWatchlist)
	mux.HandleFunc("PUT /api/watchlist/{symbol}", s.handleAddWatchlist)
	mux.HandleFunc("PATCH /api/watchlist/{symbol}", s.handleWatchlistNotes)
	mux.HandleFunc("DELETE /api/watchlist/{symbol}", s.handleRemoveWatchlist)

	mux.HandleFunc("GET /api/journal", s.handleGetJournal)
	mux.HandleFunc("POST /api/journal", s.handleAddTrade)
	mux.HandleFunc("PATCH /api/journal/{id}", s.handleUpdateTrade)
	mux.HandleFunc("DELETE /api/journal/{id}", s.handleDeleteTrade)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handlePutSettings)

	mux.HandleFunc("GET /api/archive/dates", s.handleArchiveDates)
	mux.HandleFunc("GET /api/archive/{date}", s.handleArchiveDay)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Stats, signals, analytics
// ---------------------------------------------------------------------------

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Stats: signal.ComputeStats(s.app.Dataset())}
	if t := s.app.LastUpdate(); !t.IsZero() {
		resp.LastUpdate = t.Format(time.RFC3339)
	}
	writeJSON(w, resp)
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	records := s.app.Dataset()
	resp := SignalsResponse{
		Momentum: signal.FindMomentumTickers(records),
		Hot:      signal.FindHotTickers(records),
	}
	if resp.Momentum == nil {
		resp.Momentum = []signal.MomentumTicker{}
	}
	if resp.Hot == nil {
		resp.Hot = []signal.HotTicker{}
	}
	writeJSON(w, resp)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	field := r.URL.Query().Get("field")
	if field == "" {
		field = "Return_10d"
	}
	records := s.app.Dataset()

	resp := AnalyticsResponse{Field: field}
	for _, c := range []struct {
		name   string
		subset []domain.Record
	}{
		{"momentum", momentumCohort(records)},
		{"hot", hotCohort(records)},
		{"bullish_pc", pcCohort(records, func(pc float64) bool { return pc < 0.3 })},
		{"bearish_pc", pcCohort(records, func(pc float64) bool { return pc > 2.0 })},
	} {
		resp.Cohorts = append(resp.Cohorts, CohortAnalytics{
			Name:      c.name,
			Records:   len(c.subset),
			WinRate:   signal.WinRate(c.subset, field),
			AvgReturn: signal.AvgReturn(c.subset, field),
		})
	}
	writeJSON(w, resp)
}

// momentumCohort returns the records belonging to momentum symbols.
func momentumCohort(records []domain.Record) []domain.Record {
	keep := make(map[string]bool)
	for _, m := range signal.FindMomentumTickers(records) {
		keep[m.Symbol] = true
	}
	return filterBySymbol(records, keep)
}

// hotCohort returns the records belonging to hot symbols.
func hotCohort(records []domain.Record) []domain.Record {
	keep := make(map[string]bool)
	for _, h := range signal.FindHotTickers(records) {
		keep[h.Symbol] = true
	}
	return filterBySymbol(records, keep)
}

func pcCohort(records []domain.Record, match func(float64) bool) []domain.Record {
	var out []domain.Record
	for i := range records {
		if match(records[i].PCVol) {
			out = append(out, records[i])
		}
	}
	return out
}

func filterBySymbol(records []domain.Record, keep map[string]bool) []domain.Record {
	var out []domain.Record
	for i := range records {
		if keep[records[i].Symbol] {
			out = append(out, records[i])
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Records table
// ---------------------------------------------------------------------------

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	pageSize := s.pageSize
	if ps := q.Get("page_size"); ps != "" {
		if n, err := strconv.Atoi(ps); err == nil && n > 0 {
			pageSize = n
		}
	}

	st := view.NewState(s.app.Dataset(), pageSize)
	st.ApplyFilter(filterFromQuery(q))

	if col := q.Get("sort"); col != "" {
		dir := view.Descending
		if q.Get("dir") == "asc" {
			dir = view.Ascending
		}
		st.SetSort(col, dir)
	}

	if p := q.Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			st.SetPage(n)
		}
	}

	records := st.Visible()
	if records == nil {
		records = []domain.Record{}
	}
	sortCol, sortDir := st.SortKey()
	dir := "desc"
	if sortDir == view.Ascending {
		dir = "asc"
	}
	pages := st.PageNumbers()
	if pages == nil {
		pages = []int{}
	}

	writeJSON(w, PageResponse{
		Records:     records,
		Page:        st.Page(),
		PageSize:    st.PageSize(),
		TotalPages:  st.TotalPages(),
		Filtered:    st.FilteredCount(),
		Total:       st.TotalCount(),
		PageNumbers: pages,
		SortColumn:  sortCol,
		SortDir:     dir,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	st := view.NewState(s.app.Dataset(), s.pageSize)
	st.ApplyFilter(filterFromQuery(r.URL.Query()))

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="export.csv"`)
	w.Write(app.ExportCSV(st.Filtered()))
}

// ---------------------------------------------------------------------------
// Upload and demo load
// ---------------------------------------------------------------------------

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	body, name, err := uploadBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer body.Close()

	parsed, err := parseUpload(body, name)
	if err != nil {
		var parseErr *parse.ParseError
		if errors.As(err, &parseErr) {
			writeError(w, http.StatusBadRequest, parseErr.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	total := s.app.MergeUpload(parsed)
	writeJSON(w, UploadResponse{Imported: len(parsed), Total: total})
}

func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	records, err := demo.Fetch(r.Context(), s.demoClient, s.demoURL)
	if err != nil {
		s.log.Warn("demo data fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.app.ReplaceDataset(records)
	writeJSON(w, UploadResponse{Imported: len(records), Total: len(records)})
}

// ---------------------------------------------------------------------------
// Watchlist
// ---------------------------------------------------------------------------

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	wl := s.app.Watchlist()
	if wl == nil {
		wl = []app.WatchEntry{}
	}
	writeJSON(w, wl)
}

func (s *Server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	// Duplicate adds are a soft no-op, reported through the Added flag.
	added := s.app.AddWatch(symbol, body.Notes)
	writeJSON(w, WatchAddResponse{Symbol: symbol, Added: added})
}

func (s *Server) handleWatchlistNotes(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	var body struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.app.UpdateWatchNotes(symbol, body.Notes)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	s.app.RemoveWatch(strings.ToUpper(r.PathValue("symbol")))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearWatchlist(w http.ResponseWriter, r *http.Request) {
	s.app.ClearWatchlist()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportWatchlist(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="watchlist.csv"`)
	w.Write(s.app.ExportWatchlist())
}

// ---------------------------------------------------------------------------
// Trading journal
// ---------------------------------------------------------------------------

func (s *Server) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, convertTrades(s.app.Journal()))
}

func (s *Server) handleAddTrade(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symbol     string  `json:"symbol"`
		Type       string  `json:"type"`
		EntryPrice float64 `json:"entryPrice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol and entryPrice required")
		return
	}
	t := s.app.AddTrade(strings.ToUpper(body.Symbol), body.Type, body.EntryPrice)
	writeJSON(w, convertTrade(t))
}

func (s *Server) handleUpdateTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var u app.TradeUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	// Unknown ids are a soft no-op, mirroring delete.
	s.app.UpdateTrade(id, u)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.app.DeleteTrade(id)
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.app.Settings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var st app.Settings
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.app.SetSettings(st)
	writeJSON(w, st)
}

// ---------------------------------------------------------------------------
// Upload archive
// ---------------------------------------------------------------------------

func (s *Server) handleArchiveDates(w http.ResponseWriter, r *http.Request) {
	days, err := s.archive.Days()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing archive")
		return
	}
	if days == nil {
		days = []string{}
	}
	writeJSON(w, ArchiveDatesResponse{Dates: days})
}

func (s *Server) handleArchiveDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	records, err := s.archive.ReadDay(date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("reading archive for %s", date))
		return
	}
	if records == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no uploads archived on %s", date))
		return
	}
	writeJSON(w, records)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func floatParam(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func filterFromQuery(q url.Values) view.Filter {
	return view.Filter{
		Symbol:   q.Get("symbol"),
		DateFrom: q.Get("from"),
		DateTo:   q.Get("to"),
		PCMin:    floatParam(q.Get("pc_min")),
		PCMax:    floatParam(q.Get("pc_max")),
		IVMin:    floatParam(q.Get("iv_min")),
		IVMax:    floatParam(q.Get("iv_max")),
	}
}

// uploadBody extracts the upload content and file name from either a
// multipart form ("file" field) or a raw request body (?name= supplies the
// file name, defaulting to CSV).
func uploadBody(r *http.Request) (io.ReadCloser, string, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		f, fh, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("multipart upload requires a %q file field", "file")
		}
		return f, fh.Filename, nil
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload.csv"
	}
	return r.Body, name, nil
}

func parseUpload(body io.Reader, name string) ([]domain.Record, error) {
	switch parse.Detect(name) {
	case parse.FormatWorkbook:
		return parse.Workbook(body)
	case parse.FormatCSV:
		return parse.CSV(body)
	}
	return nil, &parse.ParseError{Reason: fmt.Sprintf("unsupported file type %q", name)}
}
