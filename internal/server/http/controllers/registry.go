package controllers

import (
	"github.com/go-chi/chi/v5"

	"github.com/corbtastik/incident-visualizer/internal/runtime"
	livesvc "github.com/corbtastik/incident-visualizer/internal/services/live"
	logpkg "github.com/corbtastik/incident-visualizer/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	live    *LiveController
}

// NewControllerRegistry initializes all controllers with the provided
// runtime and live service.
func NewControllerRegistry(rt *runtime.Runtime, svc *livesvc.Service, logger logpkg.Logger) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt, svc),
		live:    NewLiveController(svc, logger),
	}
}

// RegisterAllRoutes registers every controller's routes on r.
func (c *ControllerRegistry) RegisterAllRoutes(r chi.Router) {
	c.general.RegisterRoutes(r)
	c.live.RegisterRoutes(r)
}
