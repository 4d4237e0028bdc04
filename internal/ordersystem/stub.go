package ordersystem

import (
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/logging"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
)

// StubOrder is one order held by the stub.
type StubOrder struct {
	OrderID     string        `json:"order_id"`
	Region      models.Region `json:"region"`
	CustomerRef string        `json:"customer_ref"`
	Tag         string        `json:"tag"`
	Status      string        `json:"status"`
}

// Stub is an in-memory stand-in for the order system admin API, used for
// local development and end-to-end tests. Orders whose status is
// "shipped" are archived instead of deleted, so both method tags show up
// in testing.
type Stub struct {
	mu     sync.Mutex
	orders map[string]StubOrder
	secret string
}

// NewStub returns an empty stub. An empty secret disables auth checks.
func NewStub(jwtSecret string) *Stub {
	return &Stub{
		orders: make(map[string]StubOrder),
		secret: jwtSecret,
	}
}

// AddOrder seeds the stub directly. Test setup helper.
func (s *Stub) AddOrder(o StubOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Status == "" {
		o.Status = "created"
	}
	s.orders[o.OrderID] = o
}

// Router builds the gin router exposing the stubbed admin API.
func (s *Stub) Router() *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(logging.JSONLogger())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	adminGroup := router.Group("/api/admin")
	adminGroup.Use(s.authMiddleware())
	{
		adminGroup.GET("/orders", s.queryOrders)
		adminGroup.POST("/orders", s.createOrder)
		adminGroup.DELETE("/orders/:order_id", s.deleteOrder)
	}

	return router
}

// authMiddleware validates the Bearer service token when a secret is set.
func (s *Stub) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.secret == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be in format 'Bearer <token>'"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenParts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(s.secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if role, _ := claims["role"].(string); role != "admin" {
				c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

func (s *Stub) queryOrders(c *gin.Context) {
	tag := c.Query("tag")
	if tag == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tag query parameter is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make([]gin.H, 0)
	for _, o := range s.orders {
		if o.Tag == tag {
			refs = append(refs, gin.H{"order_id": o.OrderID})
		}
	}
	c.JSON(http.StatusOK, gin.H{"orders": refs})
}

func (s *Stub) createOrder(c *gin.Context) {
	var req StubOrder
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.OrderID == "" || req.Tag == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id and tag are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[req.OrderID]; exists {
		c.JSON(http.StatusConflict, gin.H{"error": "order already exists"})
		return
	}
	if req.Status == "" {
		req.Status = "created"
	}
	s.orders[req.OrderID] = req
	c.JSON(http.StatusCreated, req)
}

func (s *Stub) deleteOrder(c *gin.Context) {
	orderID := c.Param("order_id")

	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	method := "deleted"
	if o.Status == "shipped" {
		// Shipped orders keep an audit trail; they are archived, not removed.
		method = "archived"
		o.Status = "archived"
		s.orders[orderID] = o
	} else {
		delete(s.orders, orderID)
	}

	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "method": method})
}
