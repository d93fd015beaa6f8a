package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/customers/internal/domain"
	"github.com/vladislavdragonenkov/customers/internal/projection"
	"github.com/vladislavdragonenkov/customers/internal/service/customer"
)

func (h *handler) listCustomers(c *gin.Context) {
	pageNumber, pageSize, err := pagination(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	customers, err := h.customers.List(c.Request.Context(), pageNumber, pageSize)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if len(customers) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, projection.Customers(customers))
}

func (h *handler) getCustomer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	found, err := h.customers.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, projection.Customer(found))
}

func (h *handler) createCustomer(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	created, err := h.customers.Create(c.Request.Context(), req.input())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Header("Location", "/api/customers/"+strconv.FormatInt(created.ID, 10))
	c.JSON(http.StatusCreated, projection.Customer(created))
}

func (h *handler) createCustomerBatch(c *gin.Context) {
	var req []customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	records := make([]domain.CustomerInput, 0, len(req))
	for _, r := range req {
		records = append(records, r.input())
	}

	result, err := h.customers.CreateBatch(c.Request.Context(), records)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if result.Outcome == customer.BatchNoContent {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusCreated, projection.Customers(result.Customers))
}

func (h *handler) replaceCustomer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	replaced, err := h.customers.Replace(c.Request.Context(), id, req.input())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, projection.Customer(replaced))
}

func (h *handler) patchCustomer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req customerPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	patched, err := h.customers.Patch(c.Request.Context(), id, req.patch())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, projection.Customer(patched))
}

func (h *handler) deleteCustomer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.customers.Delete(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// patchAddress: addressId приходит в query, тело null или пустое означает отсутствие патча.
func (h *handler) patchAddress(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	var addressID *int64
	if raw, ok := c.GetQuery("addressId"); ok && raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(c, h.logger, errInvalidID)
			return
		}
		addressID = &parsed
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	var patch *domain.AddressPatch
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		patch = &domain.AddressPatch{}
		if err := json.Unmarshal(trimmed, patch); err != nil {
			writeError(c, h.logger, bindError(err))
			return
		}
	}

	updated, err := h.customers.PatchAddress(c.Request.Context(), id, addressID, patch)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, projection.Customer(updated))
}

func (h *handler) addAddress(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	created, err := h.customers.AddAddress(c.Request.Context(), id, req.input())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, projection.Address(created))
}

func (h *handler) replaceAddress(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	addressID, err := pathID(c, "addressId")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	updated, err := h.customers.ReplaceAddress(c.Request.Context(), id, addressID, req.input())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, projection.Customer(updated))
}

func (h *handler) deleteAddress(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	addressID, err := pathID(c, "addressId")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.customers.DeleteAddress(c.Request.Context(), id, addressID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) listCustomerOrders(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	orders, err := h.orders.ListByCustomer(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.writeOrders(c, orders)
}
