package server

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed web
var webFS embed.FS

func (s *Server) serveAssets() {
	subFS, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(subFS))))
}
