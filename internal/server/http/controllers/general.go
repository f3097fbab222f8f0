package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corbtastik/incident-visualizer/internal/runtime"
	livesvc "github.com/corbtastik/incident-visualizer/internal/services/live"
)

// GeneralController serves health and category listing.
type GeneralController struct {
	rt  *runtime.Runtime
	svc *livesvc.Service
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime, svc *livesvc.Service) *GeneralController {
	return &GeneralController{rt: rt, svc: svc}
}

// RegisterRoutes registers:
// - GET /v1/healthz
// - GET /v1/categories
func (c *GeneralController) RegisterRoutes(r chi.Router) {
	r.Get("/v1/healthz", c.handleHealth)
	r.Get("/v1/categories", c.handleCategories)
}

// handleHealth returns 200 {"status":"ok"} when storage answers a ping,
// 503 otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		writeBody(w, healthResp{Status: "not_serving", Error: err.Error()})
		return
	}
	writeJSON(w, healthResp{Status: "ok"})
}

func (c *GeneralController) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, categoriesResp{Categories: c.svc.Categories()})
}
