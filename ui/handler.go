package ui

import (
	"io/fs"
	"net/http"
	"strings"
)

// SPAHandler serves the single-page application from the dist filesystem.
// Requests for existing files are served directly; every other non-API path
// falls back to index.html so client-side routing works. API paths never
// fall through to the SPA.
func SPAHandler() http.Handler {
	dist := DistFS()
	fileServer := http.FileServer(http.FS(dist))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/")
		if path != "" {
			if _, err := fs.Stat(dist, path); err == nil {
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		index, err := fs.ReadFile(dist, "index.html")
		if err != nil {
			http.Error(w, "Frontend build not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(index)
	})
}
