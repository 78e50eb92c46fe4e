package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sangkips/tillpoint/internal/application/service"
	"github.com/sangkips/tillpoint/internal/presentation/http/dto/request"
	"github.com/sangkips/tillpoint/internal/presentation/http/dto/response"
)

// CartHandler handles the carts of the tills and billing them
type CartHandler struct {
	cartService    *service.CartService
	billingService *service.BillingService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *service.CartService, billingService *service.BillingService) *CartHandler {
	return &CartHandler{cartService: cartService, billingService: billingService}
}

// Create opens an empty cart
func (h *CartHandler) Create(c *gin.Context) {
	response.Created(c, "Cart created", h.cartService.Create())
}

// List returns the open carts; ?held=true lists held carts only
func (h *CartHandler) List(c *gin.Context) {
	response.OK(c, "Carts retrieved successfully", h.cartService.List(c.Query("held") == "true"))
}

// Get returns one cart
func (h *CartHandler) Get(c *gin.Context) {
	id, ok := parseCartID(c)
	if !ok {
		return
	}
	cart, err := h.cartService.Get(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Cart retrieved successfully", cart)
}

// Discard drops a cart without billing it
func (h *CartHandler) Discard(c *gin.Context) {
	id, ok := parseCartID(c)
	if !ok {
		return
	}
	if err := h.cartService.Discard(id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddItem adds a product to the cart
func (h *CartHandler) AddItem(c *gin.Context) {
	id, ok := parseCartID(c)
	if !ok {
		return
	}
	var req request.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	cart, err := h.cartService.AddItem(c.Request.Context(), id, req.ProductID, req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Item added", cart)
}

// SetQuantity changes the quantity of a line
func (h *CartHandler) SetQuantity(c *gin.Context) {
	id, ok := parseCartID(c)
	if !ok {
		return
	}
	productID, ok := parseLineID(c)
	if !ok {
		return
	}
	var req request.SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	cart, err := h.cartService.SetQuantity(id, productID, *req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Quantity updated", cart)
}

// RemoveItem removes a line
func (h *CartHandler) RemoveItem(c *gin.Context) {
	id, ok := parseCartID(c)
	if !ok {
		return
	}
	productID, ok := parseLineID(c)
	if !ok {
		return
	}
	cart, err := h.cartService.RemoveItem(id, productID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Item removed", cart)
}

// SetBillDate backdates the cart or clears the bill date
func (h *CartHandler) SetBillDate(c *gin.Context) {
	id, ok := parseCartID(c)
	if !ok {
		return
	}
	var req request.SetBillDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	var billDate *time.Time
	if req.BillDate != "" {
		d, _ := time.Parse("2006-01-02", req.BillDate)
		billDate = &d
	}
	cart, err := h.cartService.SetBillDate(id, billDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Bill date updated", cart)
}

// Hold parks a cart
func (h *CartHandler) Hold(c *gin.Context) {
	id, ok := parseCartID(c)
	if !ok {
		return
	}
	cart, err := h.cartService.Hold(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Cart held", cart)
}

// Resume brings a held cart back
func (h *CartHandler) Resume(c *gin.Context) {
	id, ok := parseCartID(c)
	if !ok {
		return
	}
	cart, err := h.cartService.Resume(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Cart resumed", cart)
}

// Bill stores the cart as an invoice, or saves the invoice it is editing
func (h *CartHandler) Bill(c *gin.Context) {
	id, ok := parseCartID(c)
	if !ok {
		return
	}
	result, err := h.billingService.Bill(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Invoice saved", result)
}

// parseLineID reads the product id of a cart line. Lines of products that left the
// catalog have negative ids.
func parseLineID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid product_id")
		return 0, false
	}
	return id, true
}
