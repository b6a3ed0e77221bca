package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hrygo/subjectindex/plugin/corpus"
	"github.com/hrygo/subjectindex/plugin/project"
	"github.com/hrygo/subjectindex/plugin/suggest"
)

var testSubjects = []suggest.Subject{
	{URI: "http://example.org/maui", Label: "maui"},
	{URI: "http://example.org/ships", Label: "ships"},
	{URI: "http://example.org/fish", Label: "fish"},
	{URI: "http://example.org/archaeology", Label: "archaeology"},
}

func newTestProject(opts ...project.Option) *project.Project {
	opts = append([]project.Option{project.WithVocabulary(suggest.NewVocabulary(testSubjects))}, opts...)
	return project.New("test-en", "en", opts...)
}

func documentCorpus() corpus.Corpus {
	return corpus.NewDocumentList(
		corpus.Document{Text: "Shipwrecks on the sea floor", URIs: []string{"http://example.org/ships", "http://example.org/archaeology"}},
		corpus.Document{Text: "Salmon and trout", URIs: []string{"http://example.org/fish"}, Labels: []string{"fish"}},
	)
}

// recordedCall is one request received by a fake remote service.
type recordedCall struct {
	Method      string
	Path        string
	ContentType string
	Body        string
}

// fakeService is an httptest server that records calls and dispatches
// them by "METHOD /path".
type fakeService struct {
	*httptest.Server

	mu     sync.Mutex
	calls  []recordedCall
	routes map[string]http.HandlerFunc
}

func newFakeService(t *testing.T, routes map[string]http.HandlerFunc) *fakeService {
	t.Helper()
	f := &fakeService{routes: routes}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        string(body),
		})
		handler, ok := f.routes[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "no route", http.StatusTeapot)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeService) Calls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeService) Requests() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.Method+" "+c.Path)
	}
	return out
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}
}

func jsonBody(code int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
	}
}

// dropConnection closes the connection without a response, which the
// client sees as a transport error.
func dropConnection(w http.ResponseWriter, _ *http.Request) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("response writer cannot be hijacked")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(err)
	}
	conn.Close()
}

// sequence serves the handlers in order, repeating the last one.
func sequence(handlers ...http.HandlerFunc) http.HandlerFunc {
	var mu sync.Mutex
	i := 0
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		h := handlers[min(i, len(handlers)-1)]
		i++
		mu.Unlock()
		h(w, r)
	}
}

type staticSources map[string]suggest.Suggester

func (s staticSources) ResolveSource(id string) (suggest.Suggester, error) {
	if m, ok := s[id]; ok {
		return m, nil
	}
	return nil, io.ErrUnexpectedEOF
}

func fixed(hits ...suggest.Hit) suggest.Suggester {
	return suggest.SuggesterFunc(func(context.Context, string) *suggest.Result {
		return suggest.NewResult(hits, 0)
	})
}
