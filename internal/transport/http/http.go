// Package http exposes a session over a JSON REST API, a WebSocket event
// stream and Swagger UI. It also serves the remote planner protocol so one
// cutline instance can plan for another.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/cutline/docs"
	"github.com/nadzzz/cutline/internal/planner"
	"github.com/nadzzz/cutline/internal/planner/remote"
	"github.com/nadzzz/cutline/internal/selection"
	"github.com/nadzzz/cutline/internal/session"
	"github.com/nadzzz/cutline/internal/transport"
	"github.com/nadzzz/cutline/internal/voice"
)

const maxAudioBytes = 25 << 20

// Options configures the HTTP transport.
type Options struct {
	Port int

	// Voice enables POST /v1/voice when non-nil.
	Voice *voice.Front

	// Planner enables POST /v1/plan when non-nil.
	Planner planner.Planner
}

// Transport implements transport.Transport over HTTP and WebSocket.
type Transport struct {
	svc      transport.Service
	opts     Options
	server   *http.Server
	upgrader websocket.Upgrader
	pongWait time.Duration // websocket read deadline, extended by pongs
}

// New creates an HTTP transport for svc.
func New(svc transport.Service, opts Options) *Transport {
	return &Transport{
		svc:  svc,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		pongWait: 60 * time.Second,
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler returns the routed API.
func (t *Transport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/command", t.handleCommand)
	mux.HandleFunc("POST /v1/choose", t.handleChoose)
	mux.HandleFunc("POST /v1/apply", t.outcomeHandler(t.svc.Apply))
	mux.HandleFunc("POST /v1/discard", t.outcomeHandler(t.svc.Discard))
	mux.HandleFunc("POST /v1/undo", t.outcomeHandler(t.svc.Undo))
	mux.HandleFunc("POST /v1/reset", t.handleReset)
	mux.HandleFunc("PUT /v1/mode", t.handleMode)
	mux.HandleFunc("GET /v1/state", t.handleState)
	mux.HandleFunc("GET /v1/history", t.handleHistory)
	if t.opts.Voice != nil {
		mux.HandleFunc("POST /v1/voice", t.handleVoice)
	}
	if t.opts.Planner != nil {
		mux.HandleFunc("POST /v1/plan", t.handlePlan)
	}
	mux.HandleFunc("GET /ws", t.handleWebSocket)
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	return mux
}

// Listen serves until ctx is cancelled.
func (t *Transport) Listen(ctx context.Context) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.opts.Port),
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.opts.Port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		_ = t.Close()
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts the server down.
func (t *Transport) Close() error {
	if t.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.server.Shutdown(ctx)
}

// handleCommand submits one command.
//
// @Summary     Submit a command
// @Description Runs a natural-language editing command through intent
// @Description classification, clarification, planning, validation and execution.
// @Tags        session
// @Accept      json
// @Produce     json
// @Param       request  body      transport.CommandRequest  true  "Command text"
// @Success     200      {object}  session.Outcome
// @Failure     400      {string}  string  "Invalid request body"
// @Failure     503      {string}  string  "Session stopped"
// @Router      /v1/command [post]
func (t *Transport) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req transport.CommandRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := t.svc.Submit(r.Context(), req.Text, req.Role())
	respond(w, out, err)
}

// handleChoose answers a clips-or-tracks question.
//
// @Summary     Answer a target question
// @Tags        session
// @Accept      json
// @Produce     json
// @Param       request  body      transport.ChooseRequest  true  "clips or tracks"
// @Success     200      {object}  session.Outcome
// @Failure     400      {string}  string  "Unknown target"
// @Router      /v1/choose [post]
func (t *Transport) handleChoose(w http.ResponseWriter, r *http.Request) {
	var req transport.ChooseRequest
	if !decode(w, r, &req) {
		return
	}
	target := selection.ParseTarget(req.Target)
	if target == selection.TargetNone {
		http.Error(w, fmt.Sprintf("unknown target %q", req.Target), http.StatusBadRequest)
		return
	}
	out, err := t.svc.Choose(r.Context(), target)
	respond(w, out, err)
}

// outcomeHandler serves apply, discard and undo.
//
// @Summary     Apply, discard or undo
// @Description apply runs the plan held in preview mode, discard drops it,
// @Description undo reverts the last applied command.
// @Tags        session
// @Produce     json
// @Success     200  {object}  session.Outcome
// @Failure     409  {string}  string  "Nothing pending"
// @Router      /v1/apply [post]
// @Router      /v1/discard [post]
// @Router      /v1/undo [post]
func (t *Transport) outcomeHandler(op func(context.Context) (session.Outcome, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := op(r.Context())
		respond(w, out, err)
	}
}

// handleReset clears history and conversational state.
//
// @Summary     Reset the session
// @Tags        session
// @Success     204
// @Router      /v1/reset [post]
func (t *Transport) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := t.svc.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMode switches between immediate and preview execution.
//
// @Summary     Set execution mode
// @Tags        session
// @Accept      json
// @Param       request  body  transport.ModeRequest  true  "immediate or preview"
// @Success     204
// @Failure     400  {string}  string  "Unknown mode"
// @Router      /v1/mode [put]
func (t *Transport) handleMode(w http.ResponseWriter, r *http.Request) {
	var req transport.ModeRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := session.ParseMode(req.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := t.svc.SetMode(r.Context(), m); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleState returns the session snapshot.
//
// @Summary     Session state
// @Description Mode, planner, live selection context, history, pending plan
// @Description and open clarification.
// @Tags        session
// @Produce     json
// @Success     200  {object}  session.Snapshot
// @Router      /v1/state [get]
func (t *Transport) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := t.svc.Snapshot(r.Context())
	respond(w, snap, err)
}

// handleHistory returns the history log.
//
// @Summary     Session history
// @Tags        session
// @Produce     json
// @Success     200  {array}  history.Entry
// @Router      /v1/history [get]
func (t *Transport) handleHistory(w http.ResponseWriter, r *http.Request) {
	snap, err := t.svc.Snapshot(r.Context())
	respond(w, snap.History, err)
}

// handleVoice accepts a spoken command.
//
// @Summary     Submit a spoken command
// @Description Accepts a JSON voice request (base64 audio) or raw audio bytes.
// @Description The recording is screened, transcribed and submitted like text.
// @Tags        voice
// @Accept      json
// @Accept      audio/wav
// @Accept      audio/webm
// @Produce     json
// @Param       request                  body    voice.Request  true   "Voice request. For raw audio, POST the bytes with their Content-Type."
// @Param       X-Cutline-Language       header  string         false  "ISO-639-1 language hint (raw uploads)"
// @Param       X-Cutline-Response-Mode  header  string         false  "none, text, audio or text+audio (raw uploads)"
// @Success     200  {object}  voice.Reply
// @Failure     400  {string}  string  "Invalid request"
// @Failure     502  {string}  string  "Transcription failed"
// @Router      /v1/voice [post]
func (t *Transport) handleVoice(w http.ResponseWriter, r *http.Request) {
	var req voice.Request
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if !decode(w, r, &req) {
			return
		}
	} else {
		audio, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes))
		if err != nil {
			http.Error(w, "reading audio: "+err.Error(), http.StatusBadRequest)
			return
		}
		req = voice.Request{
			Audio:        audio,
			ContentType:  r.Header.Get("Content-Type"),
			Language:     r.Header.Get("X-Cutline-Language"),
			ResponseMode: voice.ResponseMode(r.Header.Get("X-Cutline-Response-Mode")),
		}
	}
	if len(req.Audio) == 0 {
		http.Error(w, "no audio", http.StatusBadRequest)
		return
	}

	reply, err := t.opts.Voice.Handle(r.Context(), req)
	switch {
	case errors.Is(err, voice.ErrNoTranscriber):
		http.Error(w, err.Error(), http.StatusNotImplemented)
	case err != nil && !isSessionErr(err):
		slog.Error("voice command failed", "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		respond(w, reply, err)
	}
}

// handlePlan serves the remote planner protocol with the local backend.
//
// @Summary     Plan a command (planner protocol)
// @Description Answers with the ok/error envelope used by the remote planner backend.
// @Tags        planner
// @Accept      json
// @Produce     json
// @Param       request  body      remote.Request   true  "Command with selection context"
// @Success     200      {object}  remote.Response
// @Failure     400      {string}  string  "Invalid request"
// @Failure     502      {object}  remote.Response  "Backend unreachable"
// @Router      /v1/plan [post]
func (t *Transport) handlePlan(w http.ResponseWriter, r *http.Request) {
	var wire remote.Request
	if !decode(w, r, &wire) {
		return
	}
	req, err := remote.DecodeRequest(wire)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp, err := t.opts.Planner.Plan(r.Context(), req)
	if err != nil {
		slog.Warn("plan request failed", "planner", t.opts.Planner.Name(), "error", err)
		writeJSON(w, http.StatusBadGateway, remote.Response{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, remote.EncodeResponse(resp))
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxAudioBytes*2)).Decode(v); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func isSessionErr(err error) bool {
	return errors.Is(err, session.ErrNothingPending) || errors.Is(err, session.ErrStopped) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNothingPending):
		code = http.StatusConflict
	case errors.Is(err, session.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), code)
}
