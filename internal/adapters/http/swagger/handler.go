// Package swagger serves the OpenAPI document and a ReDoc viewer for it.
package swagger

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// OpenAPI is the embedded OpenAPI 3 document for the HTTP API.
//
//go:embed openapi.yaml
var OpenAPI []byte

// Mount attaches the docs routes:
//
//	GET /openapi.yaml  the embedded document
//	GET /api-docs      ReDoc page rendering it
func Mount(r chi.Router) {
	if r == nil {
		panic("swagger: nil router")
	}
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(OpenAPI)
	})
	r.Get("/api-docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})
}

const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>guestrank API</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
    <script>Redoc.init('/openapi.yaml', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
