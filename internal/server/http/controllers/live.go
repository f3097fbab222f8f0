package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	livesvc "github.com/corbtastik/incident-visualizer/internal/services/live"
	logpkg "github.com/corbtastik/incident-visualizer/pkg/log"
)

// LiveController exposes bootstrap, tail and debug for each category.
type LiveController struct {
	svc    *livesvc.Service
	logger logpkg.Logger
}

// NewLiveController creates a new live controller.
func NewLiveController(svc *livesvc.Service, logger logpkg.Logger) *LiveController {
	if logger == nil {
		logger = logpkg.NewNop()
	}
	return &LiveController{svc: svc, logger: logger.WithComponent("http")}
}

// RegisterRoutes registers:
// - GET /v1/live/{category}?after=&limit=&filter=
// - GET /v1/live/{category}/bootstrap
// - GET /v1/debug/{category}
func (c *LiveController) RegisterRoutes(r chi.Router) {
	r.Get("/v1/live/{category}", c.handleTail)
	r.Get("/v1/live/{category}/bootstrap", c.handleBootstrap)
	r.Get("/v1/debug/{category}", c.handleDebug)
}

func (c *LiveController) handleTail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := c.svc.Tail(r.Context(), livesvc.TailRequest{
		Category: chi.URLParam(r, "category"),
		Cursor:   q.Get("after"),
		Limit:    parseLimit(q.Get("limit")),
		Filter:   q.Get("filter"),
	})
	if err != nil {
		c.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, resp)
}

func (c *LiveController) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	res, err := c.svc.Bootstrap(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, res)
}

func (c *LiveController) handleDebug(w http.ResponseWriter, r *http.Request) {
	info, err := c.svc.Debug(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, info)
}

// fail maps a service error onto the wire. Internal errors are logged and
// returned with a generic message.
func (c *LiveController) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := livesvc.Code(err)
	if code == livesvc.CodeInternal {
		c.logger.WithContext(r.Context()).Error("request failed",
			logpkg.Str("path", r.URL.Path), logpkg.Err(err))
		writeError(w, http.StatusInternalServerError, code, "internal error")
		return
	}
	writeError(w, statusFor(code), code, err.Error())
}
