package wells

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lasdesk/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches well routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/wells", h.list)
	rg.GET("/wells/:id", h.get)
	rg.GET("/wells/:id/curves", h.curves)
	rg.GET("/wells/:id/depth-range", h.depthRange)
	rg.POST("/wells/:id/curve-data", h.curveData)
	rg.POST("/wells/:id/interpretation", h.interpret)
}

func (h *Handler) list(c *gin.Context) {
	wells, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to list wells", nil)
		return
	}
	resp := make([]WellResponse, 0, len(wells))
	for _, w := range wells {
		resp = append(resp, toResponse(w))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := wellID(c)
	if !ok {
		return
	}
	w, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(w))
}

func (h *Handler) curves(c *gin.Context) {
	id, ok := wellID(c)
	if !ok {
		return
	}
	names, err := h.Svc.CurveNames(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"curve_names": names})
}

func (h *Handler) depthRange(c *gin.Context) {
	id, ok := wellID(c)
	if !ok {
		return
	}
	r, err := h.Svc.DepthRange(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"depth_min": r.Min, "depth_max": r.Max})
}

func (h *Handler) curveData(c *gin.Context) {
	q, ok := curveQuery(c)
	if !ok {
		return
	}
	series, err := h.Svc.CurveData(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, SeriesResponse{WellID: q.WellID, Depth: series.Depth, Curves: series.Values})
}

func (h *Handler) interpret(c *gin.Context) {
	q, ok := curveQuery(c)
	if !ok {
		return
	}
	out, err := h.Svc.Interpret(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, out)
}

func curveQuery(c *gin.Context) (CurveQuery, bool) {
	id, ok := wellID(c)
	if !ok {
		return CurveQuery{}, false
	}
	var req CurveQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return CurveQuery{}, false
	}
	q, err := req.toQuery(id)
	if err != nil {
		writeError(c, err)
		return CurveQuery{}, false
	}
	return q, true
}

func wellID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid well id", nil)
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "well not found", nil)
	case errors.Is(err, ErrNoCurves):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "well has no curves", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to load well", nil)
	}
}
