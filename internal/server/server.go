// Package server provides HTTP and WebSocket handlers
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	_ "image/png" // PNG decoder
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/uivision/bot/internal/config"
	"github.com/uivision/bot/internal/policy"
	"github.com/uivision/bot/internal/region"
	"github.com/uivision/bot/internal/runner"
	"github.com/uivision/bot/internal/trace"
	"github.com/uivision/bot/internal/vision"
)

// Message types.
type Message struct {
	Type string `json:"type"`
}

type SetMessage struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

type PutRegionsMessage struct {
	Type    string          `json:"type"`
	Regions []region.Region `json:"regions"`
}

type RegionsMessage struct {
	Type    string          `json:"type"`
	Regions []region.Region `json:"regions"`
}

type PoliciesMessage struct {
	Type  string        `json:"type"`
	Rules []policy.Rule `json:"rules"`
}

type LintMessage struct {
	Type     string              `json:"type"`
	Findings map[string][]string `json:"findings"`
}

type StatusMessage struct {
	Type      string `json:"type"`
	Clicks    bool   `json:"clicks_enabled"`
	Recording bool   `json:"recording"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	run        *runner.Manager
	cfg        *config.Config
	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// New creates a new server.
func New(run *runner.Manager, cfg *config.Config) *Server {
	s := &Server{
		run:        run,
		cfg:        cfg,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}

	go s.broadcastEvents()

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("GET /api/frame", s.handleFrame)
	mux.HandleFunc("GET /api/regions", s.handleGetRegions)
	mux.HandleFunc("GET /api/policies", s.handlePolicies)
	mux.HandleFunc("PUT /api/regions", s.handlePutRegions)
	mux.HandleFunc("POST /api/lint", s.handleLint)
	mux.HandleFunc("POST /api/recording/start", s.handleRecordingStart)
	mux.HandleFunc("POST /api/recording/stop", s.handleRecordingStop)
	mux.HandleFunc("POST /api/clicks/enable", s.handleClicksEnable)
	mux.HandleFunc("POST /api/clicks/disable", s.handleClicksDisable)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		trace.Logger(r.Context()).Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, ErrorMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		// Commands may carry their own trace_id from the UI Lab
		ctx := baseCtx
		if tc, ok := trace.ExtractFromJSON(msg); ok {
			ctx = trace.WithContext(baseCtx, tc)
		}
		s.handleCommand(ctx, conn, msg)
	}
}

func (s *Server) handleCommand(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) {
	ctx, span := trace.StartSpan(ctx, "handle_command")
	defer span.End()
	log := trace.Logger(ctx)

	var base Message
	if err := json.Unmarshal(msg, &base); err != nil {
		return
	}
	span.SetAttr("command", base.Type)

	switch base.Type {
	case "set_clicks":
		var set SetMessage
		if err := json.Unmarshal(msg, &set); err != nil {
			return
		}
		s.run.SetClicksEnabled(set.Enabled)
		s.writeStatus(ctx, conn)

	case "set_recording":
		var set SetMessage
		if err := json.Unmarshal(msg, &set); err != nil {
			return
		}
		if set.Enabled {
			if _, err := s.run.StartRecording(); err != nil {
				log.Error("failed to start recording", "error", err)
				_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Message: err.Error()})
				return
			}
		} else if err := s.run.StopRecording(); err != nil {
			log.Error("failed to stop recording", "error", err)
		}
		s.writeStatus(ctx, conn)

	case "get_regions":
		regions, err := region.Load(s.cfg.RegionsFile)
		if err != nil {
			_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Message: err.Error()})
			return
		}
		_ = wsjson.Write(ctx, conn, RegionsMessage{Type: "regions", Regions: regions})

	case "put_regions":
		var put PutRegionsMessage
		if err := json.Unmarshal(msg, &put); err != nil {
			return
		}
		if err := region.Save(s.cfg.RegionsFile, put.Regions); err != nil {
			_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Message: err.Error()})
			return
		}
		log.Info("regions updated", "count", len(put.Regions))
		_ = wsjson.Write(ctx, conn, RegionsMessage{Type: "regions", Regions: put.Regions})

	case "lint":
		findings, err := s.lint()
		if err != nil {
			_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Message: err.Error()})
			return
		}
		_ = wsjson.Write(ctx, conn, LintMessage{Type: "lint", Findings: findings})

	case "get_policies":
		_ = wsjson.Write(ctx, conn, PoliciesMessage{Type: "policies", Rules: s.run.Policies()})

	case "get_status":
		s.writeStatus(ctx, conn)
	}
}

func (s *Server) writeStatus(ctx context.Context, conn *websocket.Conn) {
	_ = wsjson.Write(ctx, conn, StatusMessage{
		Type:      "status",
		Clicks:    s.run.ClicksEnabled(),
		Recording: s.run.IsRecording(),
	})
}

// lint checks the on-disk region set against the latest frame bounds.
func (s *Server) lint() (map[string][]string, error) {
	regions, err := region.Load(s.cfg.RegionsFile)
	if err != nil {
		return nil, err
	}

	var width, height int
	if frame := s.run.Latest().Frame; frame != nil {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(frame)); err == nil {
			width, height = cfg.Width, cfg.Height
		}
	}
	return region.Lint(regions, width, height, s.cfg.TemplateDir), nil
}

func (s *Server) broadcastEvents() {
	for evt := range s.run.Events() {
		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn, e runner.Event) {
				_ = wsjson.Write(context.Background(), c, e)
			}(conn, evt)
		}
		s.mu.RUnlock()
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	state := s.run.Latest()
	if state.Frame == nil {
		http.Error(w, "no frame captured yet", http.StatusServiceUnavailable)
		return
	}

	data := state.Frame
	if r.URL.Query().Get("overlay") == "1" && state.Analysis != nil {
		regions, err := region.Load(s.cfg.RegionsFile)
		if err == nil {
			if rendered, err := vision.RenderOverlayPNG(data, regions, state.Analysis); err == nil {
				data = rendered
			}
		}
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

func (s *Server) handleGetRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := region.Load(s.cfg.RegionsFile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(regions)
}

func (s *Server) handlePolicies(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.run.Policies())
}

func (s *Server) handlePutRegions(w http.ResponseWriter, r *http.Request) {
	var regions []region.Region
	if err := json.NewDecoder(r.Body).Decode(&regions); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := region.Save(s.cfg.RegionsFile, regions); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	trace.Logger(r.Context()).Info("regions updated", "count", len(regions))
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "saved"})
}

func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	findings, err := s.lint()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(findings)
}

func (s *Server) handleRecordingStart(w http.ResponseWriter, r *http.Request) {
	dir, err := s.run.StartRecording()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "recording_started", "dir": dir})
}

func (s *Server) handleRecordingStop(w http.ResponseWriter, r *http.Request) {
	if err := s.run.StopRecording(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "recording_stopped"})
}

func (s *Server) handleClicksEnable(w http.ResponseWriter, r *http.Request) {
	s.run.SetClicksEnabled(true)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "clicks_enabled"})
}

func (s *Server) handleClicksDisable(w http.ResponseWriter, r *http.Request) {
	s.run.SetClicksEnabled(false)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "clicks_disabled"})
}
