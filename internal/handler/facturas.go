package handler

import (
	"net/http"
	"strconv"

	"github.com/juan135072/chamos-barber-app-sub003/internal/apierror"
	"github.com/juan135072/chamos-barber-app-sub003/internal/dto"
	"github.com/juan135072/chamos-barber-app-sub003/internal/middleware"
	"github.com/juan135072/chamos-barber-app-sub003/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FacturaHandler struct{ svc service.FacturaService }

func NewFacturaHandler(svc service.FacturaService) *FacturaHandler {
	return &FacturaHandler{svc: svc}
}

// Listar returns facturas filtered by date and estado (activas by default).
func (h *FacturaHandler) Listar(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter := dto.FacturaFilter{
		Fecha:  c.Query("fecha"),
		Estado: c.DefaultQuery("estado", "activas"),
		Page:   page,
		Limit:  limit,
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obtener returns a single factura with its items.
func (h *FacturaHandler) Obtener(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	resp, err := h.svc.ObtenerPorID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Anular voids a factura behind the POS security gate.
func (h *FacturaHandler) Anular(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.AnularFacturaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.Anular(c.Request.Context(), id, claims.Username, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Corregir rewrites a factura's barber, main service, or payment method.
func (h *FacturaHandler) Corregir(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.CorregirFacturaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Corregir(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
