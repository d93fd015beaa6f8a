package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/customers/internal/domain"
	"github.com/vladislavdragonenkov/customers/internal/projection"
)

func (h *handler) createOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	created, err := h.orders.Create(c.Request.Context(), req.request())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	lookup, err := h.orders.ProductLookup(c.Request.Context(), created)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	resp, err := projection.Order(created, lookup)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Header("Location", "/api/orders/"+strconv.FormatInt(created.ID(), 10))
	c.JSON(http.StatusCreated, resp)
}

func (h *handler) getOrder(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	found, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	lookup, err := h.orders.ProductLookup(c.Request.Context(), found)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	resp, err := projection.Order(found, lookup)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) listOrders(c *gin.Context) {
	pageNumber, pageSize, err := pagination(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	orders, err := h.orders.List(c.Request.Context(), pageNumber, pageSize)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.writeOrders(c, orders)
}

// writeOrders проецирует список заказов; пустой список отдаётся как 204.
func (h *handler) writeOrders(c *gin.Context, orders []*domain.Order) {
	if len(orders) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	lookup, err := h.orders.ProductLookup(c.Request.Context(), orders...)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	resp, err := projection.Orders(orders, lookup)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
