package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storelabs/storefront/internal/container"
	"github.com/storelabs/storefront/internal/domain/entity"
	handlers "github.com/storelabs/storefront/internal/interface/http"
	"github.com/storelabs/storefront/internal/interface/middleware"
	"github.com/storelabs/storefront/pkg/helpers"
)

// CatalogModule wires category, product, and review endpoints.
// Public reads; reviews need a session; catalog writes need the admin role.

type CatalogModule struct {
	Handler *handlers.CatalogHandler
	JWT     *helpers.JWTManager
}

func NewCatalogModule(h *handlers.CatalogHandler, jwt *helpers.JWTManager) *CatalogModule {
	return &CatalogModule{Handler: h, JWT: jwt}
}

func (m *CatalogModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	readLimiter := middleware.RateLimit(rdb, 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	searchLimiter := middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.GET("/categories", readLimiter, m.Handler.ListCategories)
	rg.GET("/products", readLimiter, m.Handler.ListProducts)
	rg.GET("/products/search", searchLimiter, m.Handler.SearchProducts)
	rg.GET("/products/:id", readLimiter, m.Handler.GetProduct)
	rg.GET("/products/:id/reviews", readLimiter, m.Handler.ListReviews)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.JWT))
	auth.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/products/:id/reviews", m.Handler.AddReview)
	}

	admin := rg.Group("/")
	admin.Use(middleware.Auth(m.JWT), middleware.RequireRole(string(entity.RoleAdmin)))
	{
		admin.POST("/categories", m.Handler.CreateCategory)
		admin.PUT("/categories/:id", m.Handler.UpdateCategory)
		admin.DELETE("/categories/:id", m.Handler.DeleteCategory)

		admin.POST("/products", m.Handler.CreateProduct)
		admin.PUT("/products/:id", m.Handler.UpdateProduct)
		admin.DELETE("/products/:id", m.Handler.DeleteProduct)
	}
}
