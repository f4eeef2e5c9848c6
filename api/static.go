package api

import (
	"embed"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

//go:embed web
var webFS embed.FS

func (s *Server) IndexHandler(w http.ResponseWriter, r *http.Request) {
	s.serveAsset(w, "index.html", "text/html; charset=utf-8")
}

func (s *Server) ClientJSHandler(w http.ResponseWriter, r *http.Request) {
	s.serveAsset(w, "client.js", "text/javascript; charset=utf-8")
}

// serveAsset serves the embedded demo client, or the equivalent file from
// the configured web root when one is set.
func (s *Server) serveAsset(w http.ResponseWriter, name, embeddedType string) {
	if s.cfg.WebRoot != "" {
		path := filepath.Join(s.cfg.WebRoot, name)
		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn("failed to read web asset", "path", path, "error", err)
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", detectContentType(path, data))
		_, _ = w.Write(data)
		return
	}

	data, err := webFS.ReadFile("web/" + name)
	if err != nil {
		s.log.Error("embedded asset missing", "name", name, "error", err)
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", embeddedType)
	_, _ = w.Write(data)
}

// detectContentType sniffs the file content, falling back to the extension
// for text formats the sniffer cannot tell apart (JS and HTML both detect
// as plain text without their usual markers).
func detectContentType(path string, data []byte) string {
	mt := mimetype.Detect(data)
	if mt.Is("text/plain") || mt.Is("application/octet-stream") {
		if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
			return byExt
		}
	}
	return mt.String()
}
