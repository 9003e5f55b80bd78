package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Root godoc
// @ID       root
// @Summary  Service banner
// @Tags     Meta
// @Produce  json
// @Success  200  {object}  handlers.MessageResponse
// @Router   / [get]
func (h *Handlers) Root(c *gin.Context) {
	ok(c, http.StatusOK, MessageResponse{Message: "Country Currency API is running"})
}

// Health godoc
// @ID       health
// @Summary  Liveness probe
// @Tags     Meta
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"status": "ok"})
}

// Status godoc
// @ID       status
// @Summary  Cache status
// @Description Number of cached countries and the time of the last successful refresh (null before the first one).
// @Tags     Meta
// @Produce  json
// @Success  200  {object}  services.Status
// @Failure  500  {object}  handlers.ErrorResponse
// @Router   /status [get]
func (h *Handlers) Status(c *gin.Context) {
	st, err := h.countries.Status(c.Request.Context())
	if err != nil {
		failDetails(c, http.StatusInternalServerError, ErrCodeInternal, msgInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}
