package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"smush/internal/apiclient"
)

type fakeCall struct {
	Method string
	Path   string
	Body   map[string]any
}

type fakeHandler func(body map[string]any) (int, any)

// fakeServer simula la API con respuestas por ruta (sin el prefijo /api).
type fakeServer struct {
	mu       sync.Mutex
	handlers map[string]fakeHandler
	calls    []fakeCall
}

func newFakeServer(t *testing.T) (*fakeServer, *apiclient.Client) {
	t.Helper()
	f := &fakeServer{handlers: map[string]fakeHandler{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	c, err := apiclient.New(srv.URL+"/api", time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return f, c
}

func (f *fakeServer) handle(path string, h fakeHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeServer) callsTo(path string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, c := range f.calls {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeServer) serve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path[len("/api"):]
	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Method: r.Method, Path: path, Body: body})
	h, ok := f.handlers[path]
	f.mu.Unlock()

	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	status, resp := h(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func ok(data any) (int, any) {
	return http.StatusOK, map[string]any{"success": true, "data": data}
}

func rejected(msg string) (int, any) {
	return http.StatusOK, map[string]any{"success": false, "error": msg}
}

// serverError responde sin sobre, como un proxy caído.
func serverError() (int, any) {
	return http.StatusInternalServerError, "boom"
}
