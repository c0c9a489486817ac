package server

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"
)

type asset struct {
	contentType string
	body        []byte
}

// staticHandler serves the frontend minified once at startup.
type staticHandler struct {
	assets  map[string]asset
	modTime time.Time
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`[/+]json$`), json.Minify)
	return m
}

func newStaticHandler(fsys fs.FS) (*staticHandler, error) {
	h := &staticHandler{assets: make(map[string]asset), modTime: time.Now()}
	if fsys == nil {
		return h, nil
	}
	m := newMinifier()

	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}

		contentType := mime.TypeByExtension(path.Ext(name))
		if contentType == "" {
			contentType = http.DetectContentType(body)
		}
		mediaType, _, _ := mime.ParseMediaType(contentType)

		out, err := m.Bytes(mediaType, body)
		switch {
		case err == nil:
			body = out
		case errors.Is(err, minify.ErrNotExist):
		default:
			return fmt.Errorf("minify %s: %w", name, err)
		}
		h.assets["/"+name] = asset{contentType: contentType, body: body}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if strings.HasSuffix(name, "/") {
		name += "index.html"
	}
	a, ok := h.assets[name]
	if !ok {
		a, ok = h.assets[path.Join(name, "index.html")]
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", a.contentType)
	http.ServeContent(w, r, name, h.modTime, bytes.NewReader(a.body))
}
