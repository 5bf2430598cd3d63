package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// IndexFallback is served at GET / when the frontend file is missing
const IndexFallback = "Frontend HTML file not found, but Payment Processor Server is Active."

// IndexHandler serves the upload page.
type IndexHandler struct {
	path string
}

// NewIndexHandler creates a handler serving the HTML file at path.
func NewIndexHandler(path string) *IndexHandler {
	return &IndexHandler{path: path}
}

// Get handles GET / - the file is read on every request so it can be edited
// without a restart.
func (h *IndexHandler) Get(c *gin.Context) {
	if h.path != "" {
		if html, err := os.ReadFile(h.path); err == nil {
			c.Data(http.StatusOK, "text/html; charset=utf-8", html)
			return
		}
	}
	c.String(http.StatusOK, IndexFallback)
}
