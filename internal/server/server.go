package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/example/go-zhtok/internal/config"
	"github.com/example/go-zhtok/internal/metrics"
	"github.com/example/go-zhtok/internal/pipeline"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Tokenizer runs one tokenization. *pipeline.Pipeline satisfies it.
type Tokenizer interface {
	Tokenize(input string, lang pipeline.Language, method pipeline.Method) (pipeline.Result, error)
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxChars       int
	workers        int
	requestTimeout time.Duration
	language       pipeline.Language
	method         pipeline.Method
	logger         *slog.Logger
	metrics        *metrics.Collector
}

func defaultOptions() options {
	return options{
		maxChars:       128,
		workers:        0,
		requestTimeout: 10 * time.Second,
		language:       pipeline.Mandarin,
		method:         pipeline.WordPiece,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxChars sets the maximum input length in code points for POST
// /tokenize. Zero disables the check.
func WithMaxChars(n int) Option {
	return func(o *options) { o.maxChars = n }
}

// WithWorkers sets the maximum number of concurrent tokenize calls. Zero
// means unlimited.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithDefaults sets the language and method used when a request omits them.
func WithDefaults(lang pipeline.Language, method pipeline.Method) Option {
	return func(o *options) {
		o.language = lang
		o.method = method
	}
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records request metrics on c and serves them on /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

// handler holds the dependencies needed to serve HTTP requests.
type handler struct {
	tok  Tokenizer
	opts options
	sem  chan struct{} // semaphore for worker pool
	log  *slog.Logger
}

// NewHandler returns an http.Handler that serves /health, POST /tokenize
// and, when metrics are configured, /metrics.
func NewHandler(tok Tokenizer, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		tok:  tok,
		opts: opts,
		log:  opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/tokenize", h.handleTokenize)

	if opts.metrics == nil {
		return mux
	}

	mux.Handle("/metrics", opts.metrics.Handler())
	return instrument(mux, opts.metrics)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

type tokenizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Method   string `json:"method"`
}

type tokenizeResponse struct {
	Tokenizer  string   `json:"tokenizer"`
	Language   string   `json:"language"`
	Method     string   `json:"method"`
	Normalized string   `json:"normalized"`
	Segments   []string `json:"segments,omitempty"`
	Pieces     []string `json:"pieces"`
	IDs        []int    `json:"ids"`
}

type tokenizeOutcome struct {
	res pipeline.Result
	err error
}

func (h *handler) handleTokenize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return
	}

	var req tokenizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	lang, method, err := h.selection(req)
	if err != nil {
		h.record(metrics.OutcomeInvalid, metrics.OutcomeInvalid, metrics.OutcomeInvalid, 0, 0)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := pipeline.CheckLength(req.Text, h.opts.maxChars); err != nil {
		h.record(lang.String(), method.String(), metrics.OutcomeTooLong, 0, 0)
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	// Acquire a worker slot, honouring context cancellation while waiting.
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
		case <-r.Context().Done():
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
			return
		}
		defer func() { <-h.sem }()
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	if h.opts.metrics != nil {
		defer h.opts.metrics.TrackInflight()()
	}

	start := time.Now()
	done := make(chan tokenizeOutcome, 1)
	go func() {
		res, err := h.tok.Tokenize(req.Text, lang, method)
		done <- tokenizeOutcome{res: res, err: err}
	}()

	var out tokenizeOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}
	elapsed := time.Since(start)

	attrs := []any{
		slog.String("language", lang.String()),
		slog.String("method", method.String()),
		slog.Int("text_len", len(req.Text)),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
	}

	switch err := out.err; {
	case err == nil:
	case errors.Is(err, pipeline.ErrRejected):
		h.record(lang.String(), method.String(), metrics.OutcomeRejected, elapsed, 0)
		h.log.InfoContext(r.Context(), "input rejected", attrs...)
		writeError(w, http.StatusUnprocessableEntity, "input is empty")
		return
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		h.record(lang.String(), method.String(), metrics.OutcomeTimeout, elapsed, 0)
		h.log.WarnContext(r.Context(), "tokenize timed out", append(attrs, slog.String("error", err.Error()))...)
		writeError(w, http.StatusGatewayTimeout, "tokenize timed out")
		return
	default:
		h.record(lang.String(), method.String(), metrics.OutcomeError, elapsed, 0)
		h.log.ErrorContext(r.Context(), "tokenize failed", append(attrs, slog.String("error", err.Error()))...)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res := out.res
	h.record(lang.String(), method.String(), metrics.OutcomeOK, elapsed, len(res.Pieces))
	h.log.InfoContext(r.Context(), "tokenize complete", append(attrs, slog.Int("pieces", len(res.Pieces)))...)

	writeJSON(w, http.StatusOK, tokenizeResponse{
		Tokenizer:  res.Tokenizer,
		Language:   lang.String(),
		Method:     method.String(),
		Normalized: res.Normalized,
		Segments:   res.Segments,
		Pieces:     nonNil(res.Pieces),
		IDs:        nonNilInts(res.IDs),
	})
}

func (h *handler) selection(req tokenizeRequest) (pipeline.Language, pipeline.Method, error) {
	lang, method := h.opts.language, h.opts.method

	if strings.TrimSpace(req.Language) != "" {
		l, err := pipeline.ParseLanguage(req.Language)
		if err != nil {
			return 0, 0, err
		}
		lang = l
	}

	if strings.TrimSpace(req.Method) != "" {
		m, err := pipeline.ParseMethod(req.Method)
		if err != nil {
			return 0, 0, err
		}
		method = m
	}

	return lang, method, nil
}

func (h *handler) record(lang, method, outcome string, d time.Duration, pieces int) {
	if h.opts.metrics != nil {
		h.opts.metrics.RecordTokenize(lang, method, outcome, d, pieces)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// routeLabel maps a request path onto the served routes.
func routeLabel(path string) string {
	switch path {
	case "/health", "/tokenize", "/metrics":
		return path
	default:
		return metrics.LabelOther
	}
}

func instrument(next http.Handler, c *metrics.Collector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		c.RecordHTTPRequest(r.Method, routeLabel(r.URL.Path), strconv.Itoa(rec.status), time.Since(start))
	})
}

// ---------------------------------------------------------------------------
// Server wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	tok             Tokenizer
	log             *slog.Logger
	shutdownTimeout time.Duration
}

func New(cfg config.Config, tok Tokenizer) *Server {
	timeout := 30 * time.Second
	if cfg.Server.ShutdownTimeout > 0 {
		timeout = time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	}

	return &Server{
		cfg:             cfg,
		tok:             tok,
		log:             slog.Default(),
		shutdownTimeout: timeout,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// WithLogger overrides the request logger.
func (s *Server) WithLogger(l *slog.Logger) *Server {
	s.log = l
	return s
}

func (s *Server) handlerOptions() ([]Option, error) {
	lang, err := pipeline.ParseLanguage(s.cfg.Tokenize.Language)
	if err != nil {
		return nil, fmt.Errorf("tokenize.language: %w", err)
	}

	method, err := pipeline.ParseMethod(s.cfg.Tokenize.Method)
	if err != nil {
		return nil, fmt.Errorf("tokenize.method: %w", err)
	}

	timeout := time.Duration(s.cfg.Server.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultOptions().requestTimeout
	}

	return []Option{
		WithWorkers(s.cfg.Server.Workers),
		WithMaxChars(s.cfg.Tokenize.MaxChars),
		WithRequestTimeout(timeout),
		WithDefaults(lang, method),
		WithLogger(s.log),
		WithMetrics(metrics.New("zhtok")),
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	if s.tok == nil {
		return errors.New("server: no tokenizer configured")
	}

	opts, err := s.handlerOptions()
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           NewHandler(s.tok, opts...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.log.Info("listening", slog.String("addr", s.cfg.Server.ListenAddr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
