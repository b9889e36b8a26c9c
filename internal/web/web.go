// Package web serves the browser form for building the graph and asking
// questions.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*
var staticFS embed.FS

// FS returns the embedded form assets.
func FS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Handler serves the form at / and its assets.
func Handler() http.Handler {
	return http.FileServer(http.FS(FS()))
}
