package handler

import (
	"net/http"

	"github.com/juan135072/chamos-barber-app-sub003/internal/service"

	"github.com/gin-gonic/gin"
)

type SeguridadHandler struct{ svc service.SeguridadService }

func NewSeguridadHandler(svc service.SeguridadService) *SeguridadHandler {
	return &SeguridadHandler{svc: svc}
}

type establecerClaveRequest struct {
	Clave string `json:"clave" validate:"required,min=4"`
}

// EstablecerClave sets (or rotates) the POS security PIN. Admin only.
func (h *SeguridadHandler) EstablecerClave(c *gin.Context) {
	var req establecerClaveRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.EstablecerClave(c.Request.Context(), req.Clave); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Estado reports whether the void gate has a PIN configured.
func (h *SeguridadHandler) Estado(c *gin.Context) {
	activo, err := h.svc.GateActivo(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gate_activo": activo})
}
