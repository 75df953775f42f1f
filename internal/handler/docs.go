package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# MetalOps Hedging Service

Back-office hedge lifecycle for physical metal trading: requests,
executions, rolls, fixing closes, price fixes, and the derived views.

## Hedge requests

- POST /api/hedge/requests
- GET /api/hedge/requests
- GET /api/hedge/requests/:id
- PUT /api/hedge/requests/:id
- POST /api/hedge/requests/:id/submit
- POST /api/hedge/requests/:id/approve
- POST /api/hedge/requests/:id/reject
- POST /api/hedge/requests/:id/cancel
- DELETE /api/hedge/requests/:id

## Operations

- POST /api/hedge/requests/:id/open
- POST /api/hedge/requests/:id/price-fix
- POST /api/hedge/executions/:id/roll
- POST /api/hedge/executions/:id/fixing-close

## Executions and views

- GET /api/hedge/executions
- GET /api/hedge/executions/:id
- GET /api/hedge/executions/:id/links
- GET /api/hedge/executions/:id/rolls
- GET /api/hedge/rolls
- GET /api/hedge/matching
- GET /api/hedge/exposure
- GET /api/hedge/exposure/history

## Physical records

- POST /api/physical/companies
- GET /api/physical/companies
- POST /api/physical/orders
- GET /api/physical/orders
- GET /api/physical/orders/:id
- GET /api/physical/tickets
- GET /api/physical/bl-orders

Health endpoints are /healthz and /readyz. All quantities are metric
tonnes serialized as decimal strings.
`)
	})
}
