package handler

import (
	"net/http"
	"time"

	"github.com/juan135072/chamos-barber-app-sub003/internal/apierror"
	"github.com/juan135072/chamos-barber-app-sub003/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReconciliacionHandler struct{ svc service.ReconciliacionService }

func NewReconciliacionHandler(svc service.ReconciliacionService) *ReconciliacionHandler {
	return &ReconciliacionHandler{svc: svc}
}

// Ejecutar runs the invoice integrity scan. Optional ?desde / ?hasta bounds
// (YYYY-MM-DD) limit the range; hasta is exclusive.
func (h *ReconciliacionHandler) Ejecutar(c *gin.Context) {
	var desde, hasta *time.Time
	if v := c.Query("desde"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("desde inválido, formato YYYY-MM-DD"))
			return
		}
		desde = &t
	}
	if v := c.Query("hasta"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("hasta inválido, formato YYYY-MM-DD"))
			return
		}
		hasta = &t
	}

	resp, err := h.svc.Ejecutar(c.Request.Context(), desde, hasta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VerificarSesion recomputes one session's expected amount from its ledger.
func (h *ReconciliacionHandler) VerificarSesion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	resp, err := h.svc.VerificarSesion(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
