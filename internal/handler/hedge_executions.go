package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"metalops/internal/repository"
)

type HedgeExecutionHandler struct {
	Repo repository.Repository
}

func (h *HedgeExecutionHandler) Register(r *gin.Engine) {
	g := r.Group("/api/hedge/executions")
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/links", h.links)
	g.GET("/:id/rolls", h.rolls)

	r.GET("/api/hedge/rolls", h.listRolls)
}

func (h *HedgeExecutionHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	orderBy := parseOrder(c.Query("order_by"), map[string]string{
		"trade_date":    "trade_date",
		"maturity_date": "maturity_date",
		"quantity_mt":   "quantity_mt",
		"created_at":    "created_at",
	})
	asc := strings.EqualFold(strings.TrimSpace(c.Query("order")), "asc")

	params := repository.ListHedgeExecutionsParams{
		Limit:          limit,
		Offset:         offset,
		Status:         strQueryPtr(c, "status"),
		Metal:          strQueryPtr(c, "metal"),
		Broker:         strQueryPtr(c, "broker"),
		MaturityBefore: timeQueryPtr(c, "maturity_before"),
		OrderBy:        orderBy,
		Asc:            boolPtr(asc),
	}
	items, err := h.Repo.ListHedgeExecutions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountHedgeExecutions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *HedgeExecutionHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetHedgeExecutionByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "hedge execution not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *HedgeExecutionHandler) links(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	items, err := h.Repo.ListHedgeLinksByExecutionID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *HedgeExecutionHandler) rolls(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	items, err := h.Repo.ListHedgeRolls(c.Request.Context(), repository.ListHedgeRollsParams{ExecutionID: &id})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *HedgeExecutionHandler) listRolls(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListHedgeRollsParams{
		Limit:       intQuery(c, "limit", 50),
		Offset:      intQuery(c, "offset", 0),
		ExecutionID: uint64QueryPtr(c, "execution_id"),
	}
	items, err := h.Repo.ListHedgeRolls(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
