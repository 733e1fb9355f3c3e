package handler

import (
	_ "embed"
	"net/http"

	"github.com/valyala/fasttemplate"
)

//go:embed openapi.json
var openAPISpec []byte

var docsPage = fasttemplate.New(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{title}}</title>
  <link rel="stylesheet" href="{{ui_base}}/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="{{ui_base}}/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({ url: "{{spec_url}}", dom_id: "#swagger-ui" });
  </script>
</body>
</html>
`, "{{", "}}")

const swaggerUIBase = "https://unpkg.com/swagger-ui-dist@5"

func (h *Handler) docs(w http.ResponseWriter, r *http.Request) {
	page := docsPage.ExecuteString(map[string]interface{}{
		"title":    "Friends API",
		"ui_base":  swaggerUIBase,
		"spec_url": "/docs/openapi.json",
	})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

func (h *Handler) openAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}
