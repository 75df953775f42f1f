package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"metalops/internal/models"
	"metalops/internal/position"
	"metalops/internal/repository"
)

// PhysicalHandler is plain CRUD over the physical-side records hedge
// links point at: companies, orders, tickets, BL orders.
type PhysicalHandler struct {
	Repo repository.Repository
}

func (h *PhysicalHandler) Register(r *gin.Engine) {
	g := r.Group("/api/physical")
	g.POST("/companies", h.createCompany)
	g.GET("/companies", h.listCompanies)
	g.POST("/orders", h.createOrder)
	g.GET("/orders", h.listOrders)
	g.GET("/orders/:id", h.getOrder)
	g.GET("/tickets", h.listTickets)
	g.GET("/bl-orders", h.listBLOrders)
}

type createCompanyBody struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	Country string `json:"country"`
}

func (h *PhysicalHandler) createCompany(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var body createCompanyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		Error(c, http.StatusBadRequest, "name is mandatory", nil)
		return
	}
	item := &models.Company{Name: name, Country: strings.TrimSpace(body.Country)}
	if role := strings.TrimSpace(body.Role); role != "" {
		item.Role = role
	}
	if err := h.Repo.CreateCompany(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *PhysicalHandler) listCompanies(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListCompanies(c.Request.Context(), intQuery(c, "limit", 100), intQuery(c, "offset", 0))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

type createOrderBody struct {
	CompanyID  uint64  `json:"company_id"`
	Metal      string  `json:"metal"`
	Direction  string  `json:"direction"`
	QuantityMT string  `json:"quantity_mt"`
	PriceBasis string  `json:"price_basis"`
	FixedPrice *string `json:"fixed_price"`
}

func (h *PhysicalHandler) createOrder(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var body createOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if body.CompanyID == 0 {
		Error(c, http.StatusBadRequest, "company_id is mandatory", nil)
		return
	}
	metal := strings.TrimSpace(body.Metal)
	if metal == "" {
		Error(c, http.StatusBadRequest, "metal is mandatory", nil)
		return
	}
	direction := strings.ToUpper(strings.TrimSpace(body.Direction))
	if !position.ValidDirection(direction) {
		Error(c, http.StatusBadRequest, "direction must be BUY or SELL", nil)
		return
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(body.QuantityMT))
	if err != nil || !qty.IsPositive() {
		Error(c, http.StatusBadRequest, "invalid quantity_mt", nil)
		return
	}
	item := &models.PhysicalOrder{
		CompanyID:  body.CompanyID,
		Metal:      metal,
		Direction:  direction,
		QuantityMT: qty,
		PriceBasis: strings.TrimSpace(body.PriceBasis),
	}
	if body.FixedPrice != nil {
		v, err := decimal.NewFromString(strings.TrimSpace(*body.FixedPrice))
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid fixed_price", nil)
			return
		}
		item.FixedPrice = &v
	}
	if err := h.Repo.CreatePhysicalOrder(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *PhysicalHandler) listOrders(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListPhysicalOrdersParams{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
		Metal:  strQueryPtr(c, "metal"),
		Status: strQueryPtr(c, "status"),
		Hedged: boolQueryPtr(c, "hedged"),
	}
	items, err := h.Repo.ListPhysicalOrders(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *PhysicalHandler) getOrder(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetPhysicalOrderByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "physical order not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *PhysicalHandler) listTickets(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListTickets(c.Request.Context(), uint64QueryPtr(c, "order_id"), intQuery(c, "limit", 100), intQuery(c, "offset", 0))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *PhysicalHandler) listBLOrders(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListBLOrders(c.Request.Context(), uint64QueryPtr(c, "order_id"), intQuery(c, "limit", 100), intQuery(c, "offset", 0))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
