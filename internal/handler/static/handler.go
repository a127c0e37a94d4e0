package static

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// Handler serves files under root and falls back to root/index.html for any path
// that does not name a regular file.
type Handler struct {
	root  string
	files http.Handler
}

func New(root string) *Handler {
	return &Handler{
		root:  root,
		files: http.FileServer(http.Dir(root)),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if name != "/" {
		info, err := os.Stat(filepath.Join(h.root, filepath.FromSlash(name)))
		if err == nil && !info.IsDir() {
			h.files.ServeHTTP(w, r)
			return
		}
	}

	http.ServeFile(w, r, filepath.Join(h.root, "index.html"))
}
