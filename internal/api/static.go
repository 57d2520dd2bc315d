package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var contentTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".ico":  "image/x-icon",
}

func contentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// static serves files under PublicDir. "/" is index.html.
func (s *Server) static() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		root, err := filepath.Abs(s.PublicDir)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		name := r.URL.Path
		if name == "/" || name == "" {
			name = "/index.html"
		}
		path := filepath.Join(root, filepath.FromSlash(name))
		if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
			plain(w, http.StatusForbidden, "Forbidden")
			return
		}
		b, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.Log.Sugar().Debugw("static read", "path", path, "error", err)
			}
			plain(w, http.StatusNotFound, "Not Found")
			return
		}
		w.Header().Set("Content-Type", contentType(path))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	})
}

func plain(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
