package handler

import (
	"net/http"

	"github.com/juan135072/chamos-barber-app-sub003/internal/apierror"
	"github.com/juan135072/chamos-barber-app-sub003/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BarberoHandler struct{ svc service.BarberoService }

func NewBarberoHandler(svc service.BarberoService) *BarberoHandler {
	return &BarberoHandler{svc: svc}
}

// Listar returns the active provider directory.
func (h *BarberoHandler) Listar(c *gin.Context) {
	resp, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (h *BarberoHandler) Obtener(c *gin.Context) {
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
