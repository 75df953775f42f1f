package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"metalops/internal/position"
	"metalops/internal/service"
)

// HedgeOperationHandler exposes the four position operations. Each
// endpoint is a thin shell: parse, hand to the orchestrator, map the
// typed rejection onto a status code.
type HedgeOperationHandler struct {
	Orchestrator *service.HedgeOrchestrator
}

func (h *HedgeOperationHandler) Register(r *gin.Engine) {
	reqs := r.Group("/api/hedge/requests")
	reqs.POST("/:id/open", h.open)
	reqs.POST("/:id/price-fix", h.priceFix)

	execs := r.Group("/api/hedge/executions")
	execs.POST("/:id/roll", h.roll)
	execs.POST("/:id/fixing-close", h.fixingClose)
}

type openBody struct {
	Price        string `json:"price"`
	Currency     string `json:"currency"`
	TradeDate    string `json:"trade_date"`
	MaturityDate string `json:"maturity_date"`
	Broker       string `json:"broker"`
	ContractRef  string `json:"contract_ref"`
}

// @Summary Execute an approved request into a new position
// @Tags hedge-operations
// @Router /api/hedge/requests/{id}/open [post]
func (h *HedgeOperationHandler) open(c *gin.Context) {
	if h.Orchestrator == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var body openBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(body.Price))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid price", nil)
		return
	}
	tradeDate, ok := parseDate(body.TradeDate)
	if !ok {
		Error(c, http.StatusBadRequest, "invalid trade_date", nil)
		return
	}
	maturity, ok := parseDate(body.MaturityDate)
	if !ok {
		Error(c, http.StatusBadRequest, "invalid maturity_date", nil)
		return
	}
	out, err := h.Orchestrator.Open(c.Request.Context(), id, position.OpenInput{
		Price:        price,
		Currency:     strings.TrimSpace(body.Currency),
		TradeDate:    tradeDate,
		MaturityDate: maturity,
		Broker:       strings.TrimSpace(body.Broker),
		ContractRef:  strings.TrimSpace(body.ContractRef),
	})
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, out, nil)
}

type rollBody struct {
	RequestID      *uint64 `json:"request_id"`
	Quantity       string  `json:"quantity_mt"`
	ClosePrice     string  `json:"close_price"`
	NewPrice       string  `json:"new_price"`
	NewMaturity    string  `json:"new_maturity"`
	NewBroker      string  `json:"new_broker"`
	NewContractRef string  `json:"new_contract_ref"`
	RollCost       *string `json:"roll_cost"`
	CostCurrency   string  `json:"cost_currency"`
	Reason         string  `json:"reason"`
}

// @Summary Roll an open position into a new contract month
// @Tags hedge-operations
// @Router /api/hedge/executions/{id}/roll [post]
func (h *HedgeOperationHandler) roll(c *gin.Context) {
	if h.Orchestrator == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var body rollBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(body.Quantity))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid quantity_mt", nil)
		return
	}
	closePrice, err := decimal.NewFromString(strings.TrimSpace(body.ClosePrice))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid close_price", nil)
		return
	}
	newPrice, err := decimal.NewFromString(strings.TrimSpace(body.NewPrice))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid new_price", nil)
		return
	}
	newMaturity, ok := parseDate(body.NewMaturity)
	if !ok {
		Error(c, http.StatusBadRequest, "invalid new_maturity", nil)
		return
	}
	var rollCost *decimal.Decimal
	if body.RollCost != nil {
		v, err := decimal.NewFromString(strings.TrimSpace(*body.RollCost))
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid roll_cost", nil)
			return
		}
		rollCost = &v
	}
	requestID := uint64(0)
	if body.RequestID != nil {
		requestID = *body.RequestID
	}
	out, err := h.Orchestrator.Roll(c.Request.Context(), id, requestID, position.RollInput{
		Quantity:       qty,
		ClosePrice:     closePrice,
		NewPrice:       newPrice,
		NewMaturity:    newMaturity,
		NewBroker:      strings.TrimSpace(body.NewBroker),
		NewContractRef: strings.TrimSpace(body.NewContractRef),
		RollCost:       rollCost,
		CostCurrency:   strings.TrimSpace(body.CostCurrency),
		Reason:         strings.TrimSpace(body.Reason),
	})
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, out, nil)
}

type fixingCloseBody struct {
	RequestID *uint64 `json:"request_id"`
	Quantity  string  `json:"quantity_mt"`
	Price     string  `json:"price"`
	CloseDate string  `json:"close_date"`
}

// @Summary Close part or all of a position against a pricing fix
// @Tags hedge-operations
// @Router /api/hedge/executions/{id}/fixing-close [post]
func (h *HedgeOperationHandler) fixingClose(c *gin.Context) {
	if h.Orchestrator == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var body fixingCloseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(body.Quantity))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid quantity_mt", nil)
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(body.Price))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid price", nil)
		return
	}
	closeDate, ok := parseDate(body.CloseDate)
	if !ok {
		Error(c, http.StatusBadRequest, "invalid close_date", nil)
		return
	}
	requestID := uint64(0)
	if body.RequestID != nil {
		requestID = *body.RequestID
	}
	out, err := h.Orchestrator.FixingClose(c.Request.Context(), id, requestID, position.FixingCloseInput{
		Quantity:  qty,
		Price:     price,
		CloseDate: closeDate,
	})
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, out, nil)
}

type priceFixBody struct {
	Price        string `json:"price"`
	Currency     string `json:"currency"`
	TradeDate    string `json:"trade_date"`
	MaturityDate string `json:"maturity_date"`
	Broker       string `json:"broker"`
	ContractRef  string `json:"contract_ref"`
}

// @Summary Execute a price-fix request against its linked position
// @Tags hedge-operations
// @Router /api/hedge/requests/{id}/price-fix [post]
func (h *HedgeOperationHandler) priceFix(c *gin.Context) {
	if h.Orchestrator == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var body priceFixBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(body.Price))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid price", nil)
		return
	}
	tradeDate, ok := parseDate(body.TradeDate)
	if !ok {
		Error(c, http.StatusBadRequest, "invalid trade_date", nil)
		return
	}
	maturity, ok := parseDate(body.MaturityDate)
	if !ok {
		Error(c, http.StatusBadRequest, "invalid maturity_date", nil)
		return
	}
	out, err := h.Orchestrator.PriceFix(c.Request.Context(), id, position.PriceFixInput{
		Price:        price,
		Currency:     strings.TrimSpace(body.Currency),
		TradeDate:    tradeDate,
		MaturityDate: maturity,
		Broker:       strings.TrimSpace(body.Broker),
		ContractRef:  strings.TrimSpace(body.ContractRef),
	})
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, out, nil)
}

// parseDate accepts RFC3339 or a bare date; empty means unset.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
