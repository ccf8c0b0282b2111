// Package fake serves the study-assistant HTTP contract from memory. It backs
// the fake-backend command for offline development and the package tests
// that exercise the real client against a real server.
package fake

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// DefaultExam is the quiz document served by generate-exam.
const DefaultExam = `{
  "mcqs": [
    {"id": 1, "question": "Which scheduler is preemptive?", "options": ["A) FCFS", "B) Round Robin"], "correct_answer": "B) Round Robin"},
    {"id": 2, "question": "Paging removes which fragmentation?", "options": ["A) External", "B) Internal"], "correct_answer": "A) External"}
  ],
  "theory_2_marks": [{"id": 1, "question": "Define a process.", "answer": "A program in execution."}],
  "theory_5_marks": [{"id": 1, "question": "Explain deadlock conditions.", "answer": "Mutual exclusion, hold and wait, no preemption, circular wait."}]
}`

// DefaultAnalysis is the trend document served by analyze-trends.
const DefaultAnalysis = `{"trends": [
  {"topic": "CPU Scheduling", "reason": "Asked in every paper", "probability": "High"},
  {"topic": "Deadlocks", "reason": "Alternating years", "probability": "Medium"}
]}`

// Solution mirrors one pyq_solutions entry.
type Solution struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Tag      string `json:"tag"`
}

// DefaultSolutions is served by solve-pyq.
var DefaultSolutions = []Solution{
	{Question: "What is thrashing?", Answer: "Excessive **paging** activity.", Tag: "✅ Syllabus Verified"},
	{Question: "Explain quantum tunnelling?", Answer: "This question is OUT OF SYLLABUS (Not found in notes).", Tag: "⚠️ Out of Syllabus"},
}

type record struct {
	title    string
	messages []json.RawMessage
}

// Request is a call observed by the server.
type Request struct {
	Method string
	Path   string
	Body   string
}

// Server is an in-memory backend.
type Server struct {
	mu sync.Mutex
	// knowledge maps a lower-case keyword to the syllabus answer for any
	// question containing it. Questions matching nothing are "missing".
	knowledge map[string]string
	examJSON  string
	analysis  string
	solutions []Solution
	syllabus  bool

	sessions map[string]*record
	order    []string
	failures map[string]int
	requests []Request
}

// New returns a server with no sessions and no syllabus.
func New() *Server {
	return &Server{
		knowledge: map[string]string{},
		examJSON:  DefaultExam,
		analysis:  DefaultAnalysis,
		solutions: DefaultSolutions,
		sessions:  map[string]*record{},
		failures:  map[string]int{},
	}
}

// Teach makes syllabus-mode questions containing keyword answer with answer.
func (s *Server) Teach(keyword, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knowledge[strings.ToLower(keyword)] = answer
}

// SetSyllabus marks the syllabus as uploaded or not.
func (s *Server) SetSyllabus(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syllabus = ok
}

// HasSyllabus reports whether a syllabus has been uploaded.
func (s *Server) HasSyllabus() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syllabus
}

// SetExamJSON replaces the quiz document served by generate-exam.
func (s *Server) SetExamJSON(doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.examJSON = doc
}

// SetAnalysis replaces the document served by analyze-trends.
func (s *Server) SetAnalysis(doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysis = doc
}

// SetSolutions replaces the solutions served by solve-pyq.
func (s *Server) SetSolutions(sols []Solution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solutions = sols
}

// Fail makes every request to path answer with code until cleared with 0.
func (s *Server) Fail(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = code
}

// Requests returns the calls observed so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// SessionIDs returns the ids of stored sessions in creation order.
func (s *Server) SessionIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// Title returns a stored session's title.
func (s *Server) Title(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.sessions[id]
	if !ok {
		return "", false
	}
	return r.title, true
}

// Seed stores a session with the given persisted messages.
func (s *Server) Seed(id, title string, messages ...json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		s.order = append(s.order, id)
	}
	s.sessions[id] = &record{title: title, messages: messages}
}

// Handler returns the HTTP handler implementing the backend contract.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/new/", s.newSession)
		r.Post("/rename/", s.renameSession)
		r.Delete("/clear/", s.clearSessions)
		r.Get("/{id}", s.loadSession)
	})
	r.Post("/upload-pdfs/", s.uploadPDFs)
	r.Post("/chat/", s.chat)
	r.Post("/generate-exam/", s.generateExam)
	r.Post("/solve-pyq/", s.solvePYQ)
	r.Post("/analyze-trends/", s.analyzeTrends)
	r.Post("/analyze-youtube/", s.analyzeVideo)
	return r
}

// observe records the request and applies injected failures.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body string
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") && r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			body = string(data)
			r.Body = io.NopCloser(strings.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
		code := s.failures[r.URL.Path]
		s.mu.Unlock()

		if code != 0 {
			writeDetail(w, code, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]map[string]string, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		id := s.order[i]
		out = append(out, map[string]string{"id": id, "title": s.sessions[id].title})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) newSession(w http.ResponseWriter, _ *http.Request) {
	id := uuid.NewString()
	s.Seed(id, "New Chat")
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "title": "New Chat", "messages": []any{}})
}

func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	rec, ok := s.sessions[id]
	var msgs []json.RawMessage
	var title string
	if ok {
		msgs = slices.Clone(rec.messages)
		title = rec.title
	}
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}
	if msgs == nil {
		msgs = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"title": title, "messages": msgs})
}

func (s *Server) renameSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		NewTitle  string `json:"new_title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.mu.Lock()
	rec, ok := s.sessions[req.SessionID]
	if ok {
		rec.title = req.NewTitle
	}
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) clearSessions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.sessions = map[string]*record{}
	s.order = nil
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) uploadPDFs(w http.ResponseWriter, r *http.Request) {
	if _, err := formFiles(r); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.mu.Lock()
	s.syllabus = true
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Syllabus processed!"})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Question  string `json:"question"`
		Mode      string `json:"mode"`
		Style     string `json:"style"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Mode == "" {
		req.Mode = "syllabus"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[req.SessionID]
	if !ok {
		rec = &record{title: "New Chat"}
		s.sessions[req.SessionID] = rec
		s.order = append(s.order, req.SessionID)
	}
	if len(rec.messages) == 0 {
		rec.title = firstWords(req.Question, 4)
	}
	if req.Mode == "syllabus" {
		rec.messages = append(rec.messages, mustJSON(map[string]string{"role": "user", "content": req.Question}))
	}

	var answer, source string
	switch req.Mode {
	case "syllabus":
		if !s.syllabus {
			writeJSON(w, http.StatusOK, map[string]string{"status": "no_syllabus", "answer": "No syllabus uploaded."})
			return
		}
		found := false
		q := strings.ToLower(req.Question)
		for kw, a := range s.knowledge {
			if strings.Contains(q, kw) {
				answer, found = a, true
				break
			}
		}
		if !found {
			writeJSON(w, http.StatusOK, map[string]string{"status": "missing", "answer": "Topic not found in Syllabus."})
			return
		}
		source = "syllabus"
	default:
		answer = fmt.Sprintf("General knowledge (%s): %s", req.Style, req.Question)
		source = "internet"
	}

	rec.messages = append(rec.messages, mustJSON(map[string]string{"role": "ai", "content": answer, "source": source}))
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "answer": answer, "source": source})
}

func (s *Server) generateExam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.mu.Lock()
	ok, doc := s.syllabus, s.examJSON
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusBadRequest, "Upload PDF first")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"quiz_json": doc})
}

func (s *Server) solvePYQ(w http.ResponseWriter, r *http.Request) {
	if _, err := formFiles(r); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.mu.Lock()
	ok, sols := s.syllabus, slices.Clone(s.solutions)
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusBadRequest, "Upload Syllabus first")
		return
	}
	if sols == nil {
		sols = []Solution{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pyq_solutions": sols})
}

func (s *Server) analyzeTrends(w http.ResponseWriter, r *http.Request) {
	if _, err := formFiles(r); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.mu.Lock()
	doc := s.analysis
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"analysis": doc})
}

func (s *Server) analyzeVideo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.mu.Lock()
	ok := s.syllabus
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusBadRequest, "Upload Syllabus first")
		return
	}
	id := videoID(req.URL)
	if id == "" {
		writeJSON(w, http.StatusOK, map[string]string{"answer": "Error: Could not fetch subtitles or video ID is invalid.", "source": "error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"answer": fmt.Sprintf("Video %s covers material that matches the syllabus.", id),
		"source": "youtube",
	})
}

// videoID extracts the id from watch?v= or short links.
func videoID(u string) string {
	if i := strings.Index(u, "v="); i >= 0 {
		id := u[i+2:]
		if j := strings.Index(id, "&"); j >= 0 {
			id = id[:j]
		}
		return id
	}
	parts := strings.Split(strings.TrimRight(u, "/"), "/")
	return parts[len(parts)-1]
}

func formFiles(r *http.Request) (int, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return 0, err
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		return 0, fmt.Errorf("field files: required")
	}
	return len(files), nil
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
