package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"metalops/internal/models"
	"metalops/internal/repository"
	"metalops/internal/service"
)

type HedgeRequestHandler struct {
	Requests *service.RequestService
}

func (h *HedgeRequestHandler) Register(r *gin.Engine) {
	g := r.Group("/api/hedge/requests")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.POST("/:id/submit", h.submit)
	g.POST("/:id/approve", h.approve)
	g.POST("/:id/reject", h.reject)
	g.POST("/:id/cancel", h.cancel)
	g.DELETE("/:id", h.remove)
}

type createRequestBody struct {
	Metal             string  `json:"metal"`
	Direction         string  `json:"direction"`
	QuantityMT        string  `json:"quantity_mt"`
	TargetPrice       *string `json:"target_price"`
	ReferenceCurve    string  `json:"reference_curve"`
	Source            string  `json:"source"`
	OrderID           *uint64 `json:"order_id"`
	TicketID          *uint64 `json:"ticket_id"`
	BLOrderID         *uint64 `json:"bl_order_id"`
	LinkedExecutionID *uint64 `json:"linked_execution_id"`
}

// @Summary Create a draft hedge request
// @Tags hedge-requests
// @Router /api/hedge/requests [post]
func (h *HedgeRequestHandler) create(c *gin.Context) {
	if h.Requests == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(body.QuantityMT))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid quantity_mt", nil)
		return
	}
	var target *decimal.Decimal
	if body.TargetPrice != nil {
		v, err := decimal.NewFromString(strings.TrimSpace(*body.TargetPrice))
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid target_price", nil)
			return
		}
		target = &v
	}
	item, err := h.Requests.Create(c.Request.Context(), service.CreateRequestInput{
		Metal:             body.Metal,
		Direction:         strings.ToUpper(strings.TrimSpace(body.Direction)),
		QuantityMT:        qty,
		TargetPrice:       target,
		ReferenceCurve:    body.ReferenceCurve,
		Source:            strings.TrimSpace(body.Source),
		OrderID:           body.OrderID,
		TicketID:          body.TicketID,
		BLOrderID:         body.BLOrderID,
		LinkedExecutionID: body.LinkedExecutionID,
	})
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *HedgeRequestHandler) list(c *gin.Context) {
	if h.Requests == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	orderBy := parseOrder(c.Query("order_by"), map[string]string{
		"created_at":  "created_at",
		"updated_at":  "updated_at",
		"quantity_mt": "quantity_mt",
		"metal":       "metal",
	})
	asc := strings.EqualFold(strings.TrimSpace(c.Query("order")), "asc")

	params := repository.ListHedgeRequestsParams{
		Limit:          limit,
		Offset:         offset,
		Status:         strQueryPtr(c, "status"),
		Metal:          strQueryPtr(c, "metal"),
		Source:         strQueryPtr(c, "source"),
		IncludeDeleted: boolQueryDefault(c, "include_deleted", false),
		OrderBy:        orderBy,
		Asc:            boolPtr(asc),
	}
	items, total, err := h.Requests.List(c.Request.Context(), params)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *HedgeRequestHandler) get(c *gin.Context) {
	if h.Requests == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Requests.Get(c.Request.Context(), id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, item, nil)
}

type updateRequestBody struct {
	QuantityMT     *string `json:"quantity_mt"`
	TargetPrice    *string `json:"target_price"`
	ReferenceCurve *string `json:"reference_curve"`
}

func (h *HedgeRequestHandler) update(c *gin.Context) {
	if h.Requests == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var body updateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	in := service.UpdateRequestInput{ReferenceCurve: body.ReferenceCurve}
	if body.QuantityMT != nil {
		v, err := decimal.NewFromString(strings.TrimSpace(*body.QuantityMT))
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid quantity_mt", nil)
			return
		}
		in.QuantityMT = &v
	}
	if body.TargetPrice != nil {
		v, err := decimal.NewFromString(strings.TrimSpace(*body.TargetPrice))
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid target_price", nil)
			return
		}
		in.TargetPrice = &v
	}
	item, err := h.Requests.Update(c.Request.Context(), id, in)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *HedgeRequestHandler) submit(c *gin.Context) {
	h.transition(c, h.Requests.Submit)
}

func (h *HedgeRequestHandler) approve(c *gin.Context) {
	h.transition(c, h.Requests.Approve)
}

func (h *HedgeRequestHandler) cancel(c *gin.Context) {
	h.transition(c, h.Requests.Cancel)
}

type rejectBody struct {
	Reason string `json:"reason"`
}

func (h *HedgeRequestHandler) reject(c *gin.Context) {
	if h.Requests == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var body rejectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Requests.Reject(c.Request.Context(), id, body.Reason)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, item, nil)
}

type deleteBody struct {
	Reason string `json:"reason"`
}

func (h *HedgeRequestHandler) remove(c *gin.Context) {
	if h.Requests == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var body deleteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.Requests.Delete(c.Request.Context(), id, body.Reason); err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, gin.H{"deleted": id}, nil)
}

func (h *HedgeRequestHandler) transition(c *gin.Context, fn func(ctx context.Context, id uint64) (*models.HedgeRequest, error)) {
	if h.Requests == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := fn(c.Request.Context(), id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, item, nil)
}
