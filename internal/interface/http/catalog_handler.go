package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/storelabs/storefront/internal/application"
	"github.com/storelabs/storefront/internal/domain/repository"
	"github.com/storelabs/storefront/internal/interface/middleware"
	"github.com/storelabs/storefront/pkg/apperr"
	"github.com/storelabs/storefront/pkg/response"
	"github.com/storelabs/storefront/pkg/validation"
)

type CatalogHandler struct {
	Svc    *application.CatalogService
	Logger *logrus.Logger
}

func NewCatalogHandler(svc *application.CatalogService, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{Svc: svc, Logger: logger}
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description"`
}

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidInput("invalid payload", validation.ToDetails(err)...))
		return
	}
	cat, err := h.Svc.CreateCategory(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, cat, "category created")
}

func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidInput("invalid payload", validation.ToDetails(err)...))
		return
	}
	cat, err := h.Svc.UpdateCategory(c.Request.Context(), c.Param("id"), req.Name, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, cat, "category updated")
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	if err := h.Svc.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{}, "category deleted")
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	cats, err := h.Svc.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, cats, "categories")
}

// CreateProduct handles POST /products (multipart; image file required).
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req struct {
		Name        string  `form:"name" binding:"required"`
		Description string  `form:"description" binding:"required"`
		Price       float64 `form:"price" binding:"required,gte=0"`
		StockCount  int     `form:"stock_count" binding:"gte=0"`
		CategoryID  string  `form:"category_id" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, apperr.InvalidInput("invalid payload", validation.ToDetails(err)...))
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		response.Error(c, apperr.InvalidInput("product image is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error(c, apperr.UploadFailed(err))
		return
	}
	defer func(f multipart.File) { _ = f.Close() }(f)

	p, err := h.Svc.CreateProduct(c.Request.Context(), application.CreateProductInput{
		Name:             req.Name,
		Description:      req.Description,
		Price:            req.Price,
		StockCount:       req.StockCount,
		CategoryID:       req.CategoryID,
		Image:            f,
		ImageFilename:    fh.Filename,
		ImageContentType: fh.Header.Get("Content-Type"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, p, "product created")
}

// UpdateProduct handles PUT /products/:id (multipart; every field optional).
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	in := application.UpdateProductInput{}

	if v, ok := c.GetPostForm("name"); ok {
		in.Name = &v
	}
	if v, ok := c.GetPostForm("description"); ok {
		in.Description = &v
	}
	if v, ok := c.GetPostForm("price"); ok {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			response.Error(c, apperr.InvalidInput("price must be a number"))
			return
		}
		in.Price = &price
	}
	if v, ok := c.GetPostForm("stock_count"); ok {
		stock, err := strconv.Atoi(v)
		if err != nil {
			response.Error(c, apperr.InvalidInput("stock_count must be an integer"))
			return
		}
		in.StockCount = &stock
	}
	if v, ok := c.GetPostForm("category_id"); ok {
		in.CategoryID = &v
	}
	if fh, err := c.FormFile("image"); err == nil && fh != nil {
		f, err := fh.Open()
		if err != nil {
			response.Error(c, apperr.UploadFailed(err))
			return
		}
		defer func(f multipart.File) { _ = f.Close() }(f)
		in.Image = f
		in.ImageFilename = fh.Filename
		in.ImageContentType = fh.Header.Get("Content-Type")
	}

	p, err := h.Svc.UpdateProduct(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, p, "product updated")
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	if err := h.Svc.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{}, "product deleted")
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	p, err := h.Svc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, p, "product")
}

// ListProducts handles GET /products?category=&page=&limit=.
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 12)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 12
	}

	f := repository.ProductFilter{
		CategoryID: c.Query("category"),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}
	items, total, err := h.Svc.ListProducts(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	}, "products")
}

// SearchProducts handles GET /products/search?q=&limit=.
func (h *CatalogHandler) SearchProducts(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error(c, apperr.InvalidInput("q is required"))
		return
	}
	hits, err := h.Svc.SearchProducts(c.Request.Context(), q, queryInt(c, "limit", 10))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results")
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// AddReview handles POST /products/:id/reviews for authenticated customers.
func (h *CatalogHandler) AddReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.InvalidInput("invalid payload", validation.ToDetails(err)...))
		return
	}
	rev, err := h.Svc.AddReview(c.Request.Context(), c.Param("id"), c.GetString(middleware.CtxUserID), req.Rating, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, rev, "review saved")
}

func (h *CatalogHandler) ListReviews(c *gin.Context) {
	revs, err := h.Svc.ListReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, revs, "reviews")
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
