// Country HTTP handlers.
//
// This file exposes the country endpoints:
//   - GET    /countries                (filter, sort, optional paging, ETag)
//   - GET    /countries/image          (summary PNG)
//   - GET    /countries/{name}
//   - POST   /countries
//   - PUT    /countries/{name}?exchange_rate=<float>
//   - DELETE /countries/{name}
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-country-currency/internal/services"
	"github.com/tbourn/go-country-currency/internal/utils"
)

// HeaderTotalCount carries the number of matches on paginated list responses.
const HeaderTotalCount = "X-Total-Count"

// listQuery builds the service query. Paging applies only when page or
// page_size is present.
func listQuery(c *gin.Context) (services.ListQuery, bool) {
	q := services.ListQuery{
		Region:   strings.TrimSpace(c.Query("region")),
		Currency: strings.TrimSpace(c.Query("currency")),
		Sort:     strings.TrimSpace(c.Query("sort")),
	}
	_, hasPage := c.GetQuery("page")
	_, hasSize := c.GetQuery("page_size")
	paged := hasPage || hasSize
	if paged {
		p := utils.ParsePage(c.Query("page"), c.Query("page_size"))
		q.Page, q.PageSize = p.Number, p.Size
	}
	return q, paged
}

// ListCountries godoc
// @ID          listCountries
// @Summary     List cached countries
// @Description Filters by region and currency (case-insensitive) and sorts by estimated GDP.
// @Description Countries without an estimate sort last. Paging is opt-in via page/page_size.
// @Tags        Countries
// @Produce     json
// @Param       region     query  string  false  "Region filter"    example(Africa)
// @Param       currency   query  string  false  "Currency code filter"  example(NGN)
// @Param       sort       query  string  false  "Sort order"  Enums(gdp_desc, gdp_asc)
// @Param       page       query  int     false  "Page number"     minimum(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(250)
// @Success     200  {array}   domain.Country
// @Header      200  {integer} X-Total-Count "Total matches (paginated requests only)"
// @Success     304  "Not modified"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /countries [get]
func (h *Handlers) ListCountries(c *gin.Context) {
	ctx := c.Request.Context()
	q, paged := listQuery(c)

	if count, maxTS, err := h.countries.Stats(ctx, q); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"countries:%d:%d:%s:%d:%d"`, count, ts, q.Sort, q.Page, q.PageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.countries.List(ctx, q)
	if err != nil {
		failDetails(c, http.StatusInternalServerError, ErrCodeInternal, msgInternal, err.Error())
		return
	}
	if paged {
		c.Header(HeaderTotalCount, strconv.FormatInt(total, 10))
	}
	ok(c, http.StatusOK, items)
}

// GetCountry godoc
// @ID          getCountry
// @Summary     Get one country by name
// @Tags        Countries
// @Produce     json
// @Param       name  path  string  true  "Country name (case-insensitive)"  example(Nigeria)
// @Success     200  {object}  domain.Country
// @Failure     404  {object}  handlers.ErrorResponse  "Country not found"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /countries/{name} [get]
func (h *Handlers) GetCountry(c *gin.Context) {
	country, err := h.countries.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.countryError(c, err)
		return
	}
	ok(c, http.StatusOK, country)
}

// CreateCountry godoc
// @ID          createCountry
// @Summary     Add a country manually
// @Description name, population and currency_code are required.
// @Tags        Countries
// @Accept      json
// @Produce     json
// @Param       body  body  services.CreateCountryInput  true  "Country"
// @Success     201  {object}  domain.Country
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     409  {object}  handlers.ErrorResponse  "Country already exists"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /countries [post]
func (h *Handlers) CreateCountry(c *gin.Context) {
	var in services.CreateCountryInput
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		failDetails(c, http.StatusBadRequest, ErrCodeValidation, msgValidation, decodeDetails(err))
		return
	}

	country, err := h.countries.Create(c.Request.Context(), in)
	if err != nil {
		h.countryError(c, err)
		return
	}
	ok(c, http.StatusCreated, country)
}

// UpdateExchangeRate godoc
// @ID          updateExchangeRate
// @Summary     Set a country's exchange rate
// @Description The estimated GDP is left unchanged.
// @Tags        Countries
// @Produce     json
// @Param       name           path   string  true  "Country name"  example(Nigeria)
// @Param       exchange_rate  query  number  true  "Units per USD"  example(1600.5)
// @Success     200  {object}  domain.Country
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Country not found"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /countries/{name} [put]
func (h *Handlers) UpdateExchangeRate(c *gin.Context) {
	raw, present := c.GetQuery("exchange_rate")
	raw = strings.TrimSpace(raw)
	if !present || raw == "" {
		failDetails(c, http.StatusBadRequest, ErrCodeValidation, msgValidation,
			map[string]string{"exchange_rate": "is required"})
		return
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(rate) || math.IsInf(rate, 0) {
		failDetails(c, http.StatusBadRequest, ErrCodeValidation, msgValidation,
			map[string]string{"exchange_rate": "must be a number"})
		return
	}

	country, err := h.countries.UpdateExchangeRate(c.Request.Context(), c.Param("name"), rate)
	if err != nil {
		h.countryError(c, err)
		return
	}
	ok(c, http.StatusOK, country)
}

// DeleteCountry godoc
// @ID          deleteCountry
// @Summary     Delete a country
// @Tags        Countries
// @Produce     json
// @Param       name  path  string  true  "Country name"  example(Nigeria)
// @Success     200  {object}  handlers.MessageResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Country not found"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /countries/{name} [delete]
func (h *Handlers) DeleteCountry(c *gin.Context) {
	name := c.Param("name")
	if err := h.countries.Delete(c.Request.Context(), name); err != nil {
		h.countryError(c, err)
		return
	}
	ok(c, http.StatusOK, MessageResponse{Message: name + " deleted successfully"})
}

// SummaryImage godoc
// @ID          summaryImage
// @Summary     Summary image of the last refresh
// @Description Total count, top 5 countries by estimated GDP and the refresh time.
// @Tags        Countries
// @Produce     png
// @Success     200  {file}    binary
// @Failure     404  {object}  handlers.ErrorResponse  "Summary image not found"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /countries/image [get]
func (h *Handlers) SummaryImage(c *gin.Context) {
	png, err := h.countries.SummaryImage(c.Request.Context())
	switch {
	case errors.Is(err, services.ErrImageNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, msgImageNotFound)
		return
	case err != nil:
		failDetails(c, http.StatusInternalServerError, ErrCodeInternal, msgInternal, err.Error())
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/png", png)
}

// countryError maps CountryService errors to responses.
func (h *Handlers) countryError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		failDetails(c, http.StatusBadRequest, ErrCodeValidation, msgValidation, verr.Fields)
	case errors.Is(err, services.ErrCountryNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, msgCountryNotFound)
	case errors.Is(err, services.ErrCountryExists):
		fail(c, http.StatusConflict, ErrCodeConflict, msgCountryExists)
	default:
		failDetails(c, http.StatusInternalServerError, ErrCodeInternal, msgInternal, err.Error())
	}
}

// decodeDetails names the offending field of a JSON decode failure.
func decodeDetails(err error) map[string]string {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	var tooLarge *http.MaxBytesError
	var timeErr *time.ParseError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return map[string]string{typeErr.Field: "must be a " + jsonKind(typeErr.Type.String())}
	case errors.As(err, &timeErr):
		return map[string]string{"last_refreshed_at": "must be an RFC 3339 timestamp"}
	case errors.As(err, &tooLarge):
		return map[string]string{"body": "too large"}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return map[string]string{"body": "malformed JSON"}
	default:
		return map[string]string{"body": "must be a JSON object"}
	}
}

func jsonKind(goType string) string {
	goType = strings.TrimPrefix(goType, "*")
	switch goType {
	case "string":
		return "string"
	case "int", "int64", "int32", "uint", "float64", "float32":
		return "number"
	case "time.Time":
		return "timestamp string"
	default:
		return goType
	}
}
