package static

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Server answers every request straight from the files under its root.
type Server struct {
	root string
}

// NewServer fixes the served root for the lifetime of the server. The root is
// made absolute and its symlinks are evaluated once here.
func NewServer(root string) (*Server, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("static root %q: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("static root %q: %w", root, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("static root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static root %q is not a directory", root)
	}
	return &Server{root: resolved}, nil
}

// Root returns the served directory.
func (s *Server) Root() string {
	return s.root
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, err := Resolve(s.root, requestPath(r))
	if err != nil {
		log.Printf("static: rejected %q: %v", r.RequestURI, err)
		if errors.Is(err, ErrMalformedInput) {
			writeText(w, http.StatusBadRequest, "400 Bad Request")
			return
		}
		writeText(w, http.StatusNotFound, "404 Not Found")
		return
	}

	info, err := os.Stat(p)
	if err != nil {
		writeText(w, http.StatusNotFound, "404 Not Found")
		return
	}
	// a missing index surfaces as a read failure below, not as a second 404
	if info.IsDir() {
		p = filepath.Join(p, IndexDocument)
		if !linksWithin(s.root, p) {
			log.Printf("static: rejected %q: %v: index %s", r.RequestURI, ErrOutsideRoot, p)
			writeText(w, http.StatusNotFound, "404 Not Found")
			return
		}
	}

	data, err := os.ReadFile(p)
	if err != nil {
		log.Printf("static: read %s: %v", p, err)
		writeText(w, http.StatusInternalServerError, "500 Internal Server Error")
		return
	}

	w.Header().Set("Content-Type", ContentType(p))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// requestPath prefers the path exactly as the client sent it.
func requestPath(r *http.Request) string {
	if strings.HasPrefix(r.RequestURI, "/") {
		return r.RequestURI
	}
	return r.URL.EscapedPath()
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
