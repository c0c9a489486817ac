// Package frontend holds the status page served at "/".
package frontend

import (
	"embed"
	"io/fs"
)

//go:embed index.html app.js style.css
var files embed.FS

func FS() fs.FS {
	return files
}
