package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/order"
	"github.com/example/storefront/pkg/payment"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Orders is the order pipeline surface the gateway needs.
type Orders interface {
	Submit(ctx context.Context, in order.SubmitInput) (*models.Order, error)
	Get(ctx context.Context, orderID string) (*models.Order, error)
	ListForUser(ctx context.Context, userID string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) error
}

// Carts is the session cart surface.
type Carts interface {
	Load(ctx context.Context, sessionID string) (*cart.Cart, error)
	AddItem(ctx context.Context, sessionID string, product cart.ProductSnapshot, quantity int32, variant *cart.Variant) (*cart.Cart, error)
	UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int32) (*cart.Cart, error)
	RemoveItem(ctx context.Context, sessionID, itemID string) (*cart.Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

// Payments covers both halves of the gateway contract: the hosted-page
// redirect and the later verification.
type Payments interface {
	Initialize(ctx context.Context, req payment.InitializeRequest) (string, error)
}

type Verifier interface {
	VerifyPayment(ctx context.Context, transactionID, txRef string) (string, error)
}

type Gateway struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	carts    Carts
	orders   Orders
	payments Payments
	verifier Verifier
	pricing  cart.Pricing
}

func NewGateway(cfg *config.Config, logger *zap.Logger, carts Carts, orders Orders, payments Payments, verifier Verifier) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Gateway{
		config:   cfg,
		logger:   logger,
		router:   router,
		carts:    carts,
		orders:   orders,
		payments: payments,
		verifier: verifier,
		pricing: cart.Pricing{
			FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
			FlatShippingFee:       cfg.Pricing.FlatShippingFee,
			TaxRate:               cfg.Pricing.TaxRate,
		},
	}
}

func (g *Gateway) SetupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := g.router.Group("/api/v1")
	{
		// Cart routes, scoped by session
		carts := v1.Group("/cart")
		{
			carts.GET("", g.getCart)
			carts.POST("/items", g.addCartItem)
			carts.PUT("/items/:id", g.updateCartItem)
			carts.DELETE("/items/:id", g.removeCartItem)
			carts.DELETE("", g.clearCart)
		}

		// Order routes
		orders := v1.Group("/orders")
		{
			orders.POST("", g.createOrder)
			orders.GET("", g.listOrders)
			orders.GET("/:id", g.getOrder)
			orders.PUT("/:id/status", g.updateOrderStatus)
		}

		// Payment routes
		payments := v1.Group("/payments")
		{
			payments.POST("/initialize", g.initializePayment)
			payments.POST("/verify", g.verifyPayment)
		}
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Router() *gin.Engine {
	return g.router
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.logger.Info("Gateway starting", zap.String("address", addr))
	return g.router.Run(addr)
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
