// Package mock implements an in-memory agent-engine gateway for development
// and demos: full session CRUD plus a scripted streaming handler that walks
// a turn through the analyst roster.
package mock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"github.com/marketmind-ai/marketmind/internal/agents"
	"github.com/marketmind-ai/marketmind/sdk/engine"
)

// Server is a mock agent-engine gateway.
type Server struct {
	mu       sync.Mutex
	sessions map[string]*engine.Session
	registry *agents.Registry

	// TokenDelay paces streamed text tokens. Zero means no pacing, which is
	// what tests want.
	TokenDelay time.Duration
}

// NewServer creates an empty mock gateway.
func NewServer() *Server {
	return &Server{
		sessions:   make(map[string]*engine.Session),
		registry:   agents.NewRegistry(agents.Defaults()),
		TokenDelay: 40 * time.Millisecond,
	}
}

// Handler returns the gateway's route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/sessions/", s.handleSession)
	mux.HandleFunc("/stream", s.handleStream)
	return mux
}

// ListenAndServe runs the gateway on the given port.
func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	fmt.Printf("mock agent engine listening on http://localhost%s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createSession(w, r)
	case http.MethodGet:
		s.listSessions(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req engine.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	now := time.Now()
	state := req.State
	if len(state) == 0 {
		state = []byte("{}")
	}
	appName := req.AppName
	if appName == "" {
		appName = engine.DefaultAppName
	}
	sess := &engine.Session{
		Name:        "projects/mock/locations/local/reasoningEngines/mock/sessions/" + id,
		DisplayName: req.DisplayName,
		State:       state,
		Events:      []engine.Event{},
		UserID:      req.UserID,
		AppName:     appName,
		CreateTime:  now,
		UpdateTime:  now,
		Active:      true,
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	// The real gateway wraps engine responses in an output envelope.
	writeJSON(w, map[string]any{"output": sess})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	pageSize := 20
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page_token"); v != "" {
		offset, _ = strconv.Atoi(v)
		if offset < 0 {
			offset = 0
		}
	}

	s.mu.Lock()
	var all []engine.Session
	for _, sess := range s.sessions {
		if userID == "" || sess.UserID == userID {
			all = append(all, *sess)
		}
	}
	s.mu.Unlock()

	if offset > len(all) {
		offset = len(all)
	}
	end := offset + pageSize
	if end > len(all) {
		end = len(all)
	}

	page := engine.SessionPage{Sessions: all[offset:end]}
	if end < len(all) {
		page.NextPageToken = strconv.Itoa(end)
	}
	writeJSON(w, map[string]any{"output": page})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/sessions/")

	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]any{"output": sess})
	case http.MethodPatch:
		var req engine.UpdateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.DisplayName == "" {
			http.Error(w, "displayName is required", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		sess.DisplayName = req.DisplayName
		sess.UpdateTime = time.Now()
		s.mu.Unlock()
		writeJSON(w, map[string]any{"output": sess})
	case http.MethodDelete:
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		writeJSON(w, map[string]any{"message": "session deleted"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req engine.StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[req.SessionID]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	s.runTurn(w, flusher, sess, req.Message)
}

// runTurn scripts one full turn: the user echo, a delegation to the analyst
// matched by the message's keywords, and a streamed summary from the
// coordinator, finishing with the accumulated non-partial echo frame.
func (s *Server) runTurn(w http.ResponseWriter, flusher http.Flusher, sess *engine.Session, message string) {
	invocation := "inv-" + uuid.NewString()

	userEvent := engine.Event{
		Author:       agents.UserAuthor,
		InvocationID: invocation,
		Timestamp:    unixNow(),
		Content:      engine.Content{Role: "user", Parts: []engine.Part{{Text: message}}},
	}
	s.sendFrame(w, flusher, userEvent)
	s.recordEvent(sess, userEvent)

	analyst, _ := s.registry.Lookup(s.registry.Hint(message))
	if analyst.Category == agents.CategorySub {
		s.delegate(w, flusher, sess, analyst, invocation)
	}

	summary := s.summaryFor(analyst, message)
	var accumulated string
	for _, token := range tokenize(summary) {
		accumulated += token
		s.sendFrame(w, flusher, engine.Event{
			Author:       agents.RootAgentID,
			Partial:      true,
			InvocationID: invocation,
			Timestamp:    unixNow(),
			Content:      engine.Content{Role: "model", Parts: []engine.Part{{Text: token}}},
		})
		if s.TokenDelay > 0 {
			time.Sleep(s.TokenDelay)
		}
	}

	// The runtime closes every turn with a non-partial echo of the full
	// accumulated text. Clients must treat it as a duplicate, not content.
	finalEvent := engine.Event{
		Author:       agents.RootAgentID,
		InvocationID: invocation,
		Timestamp:    unixNow(),
		Content:      engine.Content{Role: "model", Parts: []engine.Part{{Text: accumulated}}},
	}
	s.sendFrame(w, flusher, finalEvent)
	s.recordEvent(sess, finalEvent)
}

// delegate emits the functionCall/functionResponse pair for one analyst and
// parks its output under the analyst's state key.
func (s *Server) delegate(w http.ResponseWriter, flusher http.Flusher, sess *engine.Session, analyst agents.Definition, invocation string) {
	callID := "call-" + uuid.NewString()
	args, _ := json.Marshal(map[string]any{"request": "analysis"})

	s.sendFrame(w, flusher, engine.Event{
		Author:       agents.RootAgentID,
		InvocationID: invocation,
		Timestamp:    unixNow(),
		Content: engine.Content{Role: "model", Parts: []engine.Part{{
			FunctionCall: &engine.FunctionCall{Name: analyst.ID, Args: args, ID: callID},
		}}},
	})

	if s.TokenDelay > 0 {
		time.Sleep(3 * s.TokenDelay)
	}

	output := analyst.DisplayName + " findings: conditions look stable."
	response, _ := json.Marshal(map[string]any{"result": output})
	s.sendFrame(w, flusher, engine.Event{
		Author:       analyst.ID,
		InvocationID: invocation,
		Timestamp:    unixNow(),
		Content: engine.Content{Role: "model", Parts: []engine.Part{{
			FunctionResponse: &engine.FunctionResponse{Name: analyst.ID, Response: response, ID: callID},
		}}},
	})

	s.mu.Lock()
	if updated, err := sjson.SetBytes(sess.State, analyst.OutputKey, output); err == nil {
		sess.State = updated
	}
	sess.UpdateTime = time.Now()
	s.mu.Unlock()
}

func (s *Server) summaryFor(analyst agents.Definition, message string) string {
	if analyst.Category == agents.CategorySub {
		return fmt.Sprintf("Based on the %s's findings, here is my take on %q: market conditions look stable, with no unusual signals today.",
			strings.ToLower(analyst.DisplayName), message)
	}
	return fmt.Sprintf("Here is a quick overview for %q: nothing in today's data stands out. Ask about news, financials, technicals, or risk for a deeper dive.", message)
}

func (s *Server) recordEvent(sess *engine.Session, ev engine.Event) {
	s.mu.Lock()
	sess.Events = append(sess.Events, ev)
	sess.UpdateTime = time.Now()
	s.mu.Unlock()
}

func (s *Server) sendFrame(w http.ResponseWriter, flusher http.Flusher, ev engine.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// tokenize splits text into word-sized streaming tokens.
func tokenize(text string) []string {
	words := strings.SplitAfter(text, " ")
	var tokens []string
	for _, word := range words {
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func unixNow() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
