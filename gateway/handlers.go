package gateway

import (
	"errors"
	"net/http"

	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/order"
	"github.com/example/storefront/pkg/payment"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	sessionHeader = "X-Session-ID"
	userHeader    = "X-User-ID"
)

// sessionID identifies the cart owner. Session issuance is the auth layer's
// concern; here an absent header is simply a client error.
func sessionID(c *gin.Context) (string, bool) {
	id := c.GetHeader(sessionHeader)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return "", false
	}
	return id, true
}

// actor resolves the authenticated identity, nil when checking out as guest.
func actor(c *gin.Context) *string {
	if id := c.GetHeader(userHeader); id != "" {
		return &id
	}
	return nil
}

type cartView struct {
	Items  []cart.LineItem `json:"items"`
	Totals cart.Totals     `json:"totals"`
}

func (g *Gateway) cartResponse(c *gin.Context, crt *cart.Cart) {
	c.JSON(http.StatusOK, cartView{
		Items:  crt.Items(),
		Totals: crt.Totals(g.pricing),
	})
}

func (g *Gateway) getCart(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	crt, err := g.carts.Load(c.Request.Context(), sid)
	if err != nil {
		g.logger.Error("Failed to load cart", zap.String("session_id", sid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cart"})
		return
	}
	g.cartResponse(c, crt)
}

type addCartItemRequest struct {
	Product  cart.ProductSnapshot `json:"product" binding:"required"`
	Quantity int32                `json:"quantity"`
	Variant  *cart.Variant        `json:"selected_variant"`
}

func (g *Gateway) addCartItem(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	crt, err := g.carts.AddItem(c.Request.Context(), sid, req.Product, req.Quantity, req.Variant)
	if err != nil {
		g.logger.Error("Failed to add cart item", zap.String("session_id", sid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update cart"})
		return
	}
	g.cartResponse(c, crt)
}

type updateCartItemRequest struct {
	Quantity int32 `json:"quantity"`
}

func (g *Gateway) updateCartItem(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	crt, err := g.carts.UpdateQuantity(c.Request.Context(), sid, c.Param("id"), req.Quantity)
	if err != nil {
		g.logger.Error("Failed to update cart item", zap.String("session_id", sid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update cart"})
		return
	}
	g.cartResponse(c, crt)
}

func (g *Gateway) removeCartItem(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	crt, err := g.carts.RemoveItem(c.Request.Context(), sid, c.Param("id"))
	if err != nil {
		g.logger.Error("Failed to remove cart item", zap.String("session_id", sid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update cart"})
		return
	}
	g.cartResponse(c, crt)
}

func (g *Gateway) clearCart(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	if err := g.carts.Clear(c.Request.Context(), sid); err != nil {
		g.logger.Error("Failed to clear cart", zap.String("session_id", sid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type createOrderRequest struct {
	Items           []order.SubmitItem     `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	TotalAmount     float64                `json:"total_amount"`
	Status          string                 `json:"status"`
}

func (g *Gateway) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ord, err := g.orders.Submit(c.Request.Context(), order.SubmitInput{
		UserID:          actor(c),
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		TotalAmount:     req.TotalAmount,
		Status:          models.OrderStatus(req.Status),
		Currency:        g.config.Payment.Currency,
	})
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNoItems):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Order items are required"})
		case errors.Is(err, order.ErrMissingAddress):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Shipping address and total amount are required"})
		case errors.Is(err, order.ErrCreateOrderItems):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order items"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"orderId": ord.ID,
		"order":   ord,
	})
}

func (g *Gateway) listOrders(c *gin.Context) {
	userID := actor(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	orders, err := g.orders.ListForUser(c.Request.Context(), *userID)
	if err != nil {
		g.logger.Error("Failed to list orders", zap.String("user_id", *userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

func (g *Gateway) getOrder(c *gin.Context) {
	ord, err := g.orders.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, order.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get order"})
		return
	}
	c.JSON(http.StatusOK, ord)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := models.OrderStatus(req.Status)
	if !status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order status"})
		return
	}

	if err := g.orders.UpdateStatus(c.Request.Context(), c.Param("id"), status); err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update order status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type initializePaymentRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// initializePayment hands the order to the gateway and returns the hosted
// page URL the browser should redirect to.
func (g *Gateway) initializePayment(c *gin.Context) {
	var req initializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ord, err := g.orders.Get(c.Request.Context(), req.OrderID)
	if errors.Is(err, order.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get order"})
		return
	}

	txRef := payment.NewTxRef(ord.ID)
	initReq := payment.InitializeRequest{
		TxRef:       txRef,
		Amount:      ord.TotalAmount,
		Currency:    ord.Currency,
		RedirectURL: g.config.Payment.RedirectURL,
	}
	initReq.Customer.Email = ord.ShippingAddress.Email
	initReq.Customer.Name = ord.ShippingAddress.FirstName + " " + ord.ShippingAddress.LastName
	initReq.Customer.Phone = ord.ShippingAddress.Phone

	link, err := g.payments.Initialize(c.Request.Context(), initReq)
	if err != nil {
		g.logger.Error("Payment initialization failed",
			zap.String("order_id", ord.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment initialization failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"link": link, "tx_ref": txRef})
}

type verifyPaymentRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
	TxRef         string `json:"txRef" binding:"required"`
}

func (g *Gateway) verifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	orderID, err := g.verifier.VerifyPayment(c.Request.Context(), req.TransactionID, req.TxRef)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "orderId": orderID})
}
