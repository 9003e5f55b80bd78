// Refresh HTTP handler.
//
// POST /countries/refresh rebuilds the cache from the two upstream APIs.
//
// Idempotency:
// When the client sends an Idempotency-Key that an earlier successful refresh
// stored, the stored result is returned with `Idempotency-Replayed: true` and
// no upstream call is made.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-country-currency/internal/http/middleware"
	"github.com/tbourn/go-country-currency/internal/services"
)

// Refresh godoc
// @ID          refreshCountries
// @Summary     Refresh the country cache
// @Description Fetches all countries and USD exchange rates, recomputes estimated GDP,
// @Description upserts every country in one transaction and renders the summary image.
// @Tags        Refresh
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Success     200  {object}  services.RefreshResult
// @Header      200  {string}  Idempotency-Replayed  "true when served from a stored result"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid Idempotency-Key"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many requests"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal server error"
// @Failure     503  {object}  handlers.ErrorResponse  "External data source unavailable"
// @Router      /countries/refresh [post]
func (h *Handlers) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	key, _ := middleware.GetIdempotencyKey(c)

	var (
		res *services.RefreshResult
		err error
	)
	if key != "" && middleware.IsReplay(c) {
		res, err = h.refresher.Replay(ctx, key)
		if err != nil {
			// The stored row may have expired since the lookup; refresh instead.
			middleware.LoggerFrom(c).Debug().Err(err).Msg("replay unavailable")
			res = nil
		}
	}
	if res == nil {
		res, err = h.refresher.Refresh(ctx, key)
	}

	var uerr *services.UpstreamError
	switch {
	case errors.As(err, &uerr):
		failDetails(c, http.StatusServiceUnavailable, ErrCodeUpstream, msgUpstream, uerr.Error())
		return
	case err != nil:
		failDetails(c, http.StatusInternalServerError, ErrCodeInternal, msgInternal, err.Error())
		return
	}

	if res.Replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
	}
	ok(c, http.StatusOK, res)
}
