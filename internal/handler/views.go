package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"metalops/internal/cache"
	"metalops/internal/repository"
)

// ViewHandler serves the derived read views. Responses are cached in
// redis with a short TTL; the orchestrator invalidates the keys after
// every accepted operation, so a hit is never staler than the TTL.
type ViewHandler struct {
	Repo  repository.Repository
	Cache *cache.ProjectionCache
}

func (h *ViewHandler) Register(r *gin.Engine) {
	g := r.Group("/api/hedge")
	g.GET("/matching", h.matching)
	g.GET("/exposure", h.exposure)
	g.GET("/exposure/history", h.exposureHistory)
}

// @Summary Matching view: hedge allocations joined to physical exposures
// @Tags hedge-views
// @Router /api/hedge/matching [get]
func (h *ViewHandler) matching(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListMatchingParams{
		Limit:     intQuery(c, "limit", 100),
		Offset:    intQuery(c, "offset", 0),
		LinkLevel: strQueryPtr(c, "link_level"),
		LinkID:    uint64QueryPtr(c, "link_id"),
		Metal:     strQueryPtr(c, "metal"),
	}

	// Only the unfiltered first page is worth caching.
	cacheable := params.Offset == 0 && params.LinkLevel == nil && params.LinkID == nil && params.Metal == nil
	if cacheable {
		if raw, ok := h.Cache.Get(c.Request.Context(), cache.KeyMatching); ok {
			Ok(c, json.RawMessage(raw), map[string]any{"cached": true})
			return
		}
	}

	items, err := h.Repo.ListMatchingView(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if cacheable {
		if raw, err := json.Marshal(items); err == nil {
			h.Cache.Set(c.Request.Context(), cache.KeyMatching, raw)
		}
	}
	Ok(c, items, nil)
}

// @Summary Net exposure per metal
// @Tags hedge-views
// @Router /api/hedge/exposure [get]
func (h *ViewHandler) exposure(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	metal := ""
	if v := strQueryPtr(c, "metal"); v != nil {
		metal = *v
	}
	key := cache.KeyExposurePrefix + "all"
	if metal != "" {
		key = cache.KeyExposurePrefix + metal
	}
	if raw, ok := h.Cache.Get(c.Request.Context(), key); ok {
		Ok(c, json.RawMessage(raw), map[string]any{"cached": true})
		return
	}

	var payload any
	if metal != "" {
		exp, err := h.Repo.NetExposure(c.Request.Context(), metal)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		payload = exp
	} else {
		rows, err := h.Repo.ExposureByMetal(c.Request.Context())
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		payload = rows
	}
	if raw, err := json.Marshal(payload); err == nil {
		h.Cache.Set(c.Request.Context(), key, raw)
	}
	Ok(c, payload, nil)
}

// @Summary Exposure history from periodic snapshots
// @Tags hedge-views
// @Router /api/hedge/exposure/history [get]
func (h *ViewHandler) exposureHistory(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListExposureSnapshotsParams{
		Limit:  intQuery(c, "limit", 200),
		Offset: intQuery(c, "offset", 0),
		Metal:  strQueryPtr(c, "metal"),
		Since:  timeQueryPtr(c, "since"),
		Until:  timeQueryPtr(c, "until"),
	}
	items, err := h.Repo.ListExposureSnapshots(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
