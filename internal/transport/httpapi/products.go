package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/customers/internal/projection"
)

func (h *handler) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	created, err := h.products.Create(c.Request.Context(), req.Code, req.Name)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, projection.Product(created))
}

func (h *handler) getProduct(c *gin.Context) {
	found, err := h.products.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, projection.Product(found))
}

func (h *handler) listProducts(c *gin.Context) {
	pageNumber, pageSize, err := pagination(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	products, err := h.products.List(c.Request.Context(), pageNumber, pageSize)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	resp := make([]projection.ProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, projection.Product(p))
	}
	c.JSON(http.StatusOK, resp)
}
