package handler

import (
	_ "embed"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.yaml
var openAPISpec []byte

type DocsHandler struct {
	swagger http.HandlerFunc
}

func NewDocsHandler() *DocsHandler {
	return &DocsHandler{
		swagger: httpSwagger.Handler(
			httpSwagger.URL("/openapi.yaml"),
			httpSwagger.DeepLinking(true),
			httpSwagger.PersistAuthorization(true),
		),
	}
}

func (h *DocsHandler) OpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

// SwaggerUI serves the Swagger UI bundle under /swagger/*.
func (h *DocsHandler) SwaggerUI(w http.ResponseWriter, r *http.Request) {
	h.swagger(w, r)
}
