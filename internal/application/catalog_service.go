package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/storelabs/storefront/internal/domain/entity"
	"github.com/storelabs/storefront/internal/domain/repository"
	"github.com/storelabs/storefront/pkg/apperr"
	"github.com/storelabs/storefront/pkg/helpers"
)

const productCacheTTL = 5 * time.Minute

// CatalogService owns categories, products, and reviews. Product details are
// cached in Redis and mirrored into an Elasticsearch index for search; both
// are best-effort and the database stays authoritative.
type CatalogService struct {
	Categories repository.CategoryRepository
	Products   repository.ProductRepository
	Reviews    repository.ReviewRepository

	GCS       *storage.Client
	GCSBucket string
	Redis     *redis.Client
	ES        *elasticsearch.Client
	ESIndex   string
	Logger    *logrus.Logger
}

func NewCatalogService(categories repository.CategoryRepository, products repository.ProductRepository, reviews repository.ReviewRepository,
	gcs *storage.Client, gcsBucket string, rdb *redis.Client, es *elasticsearch.Client, esIndex string, logger *logrus.Logger) *CatalogService {
	return &CatalogService{
		Categories: categories,
		Products:   products,
		Reviews:    reviews,
		GCS:        gcs,
		GCSBucket:  gcsBucket,
		Redis:      rdb,
		ES:         es,
		ESIndex:    esIndex,
		Logger:     logger,
	}
}

func productCacheKey(id string) string {
	return "product:detail:" + id
}

func (s *CatalogService) CreateCategory(ctx context.Context, name, description string) (*entity.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidInput("category name is required")
	}
	c := &entity.Category{Name: name, Description: strings.TrimSpace(description)}
	if err := s.Categories.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id, name, description string) (*entity.Category, error) {
	c, err := s.Categories.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "category not found")
	}
	if name = strings.TrimSpace(name); name != "" {
		c.Name = name
	}
	if description = strings.TrimSpace(description); description != "" {
		c.Description = description
	}
	if err := s.Categories.Update(ctx, c); err != nil {
		return nil, mapNotFound(err, "category not found")
	}
	return c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	return mapNotFound(s.Categories.Delete(ctx, id), "category not found")
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]entity.Category, error) {
	return s.Categories.List(ctx)
}

// CreateProductInput carries the admin-facing product fields. Image is
// required; products without an image never enter the catalog.
type CreateProductInput struct {
	Name        string
	Description string
	Price       float64
	StockCount  int
	CategoryID  string

	Image            io.Reader
	ImageFilename    string
	ImageContentType string
}

func (s *CatalogService) CreateProduct(ctx context.Context, in CreateProductInput) (*entity.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.Description) == "" || in.CategoryID == "" {
		return nil, apperr.InvalidInput("name, description, and category are required")
	}
	if in.Price < 0 || in.StockCount < 0 {
		return nil, apperr.InvalidInput("price and stock count must not be negative")
	}
	if in.Image == nil {
		return nil, apperr.InvalidInput("product image is required")
	}

	if _, err := s.Categories.GetByID(ctx, in.CategoryID); err != nil {
		return nil, mapNotFound(err, "category not found")
	}

	imageURL, err := s.uploadImage(ctx, in.Image, in.ImageFilename, in.ImageContentType)
	if err != nil {
		return nil, apperr.UploadFailed(err)
	}

	p := &entity.Product{
		Name:        strings.ToLower(name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		StockCount:  in.StockCount,
		CategoryID:  in.CategoryID,
		ImageURL:    imageURL,
	}
	if err := s.Products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.indexProduct(ctx, p)
	return p, nil
}

// UpdateProductInput uses pointers so absent fields stay untouched.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *float64
	StockCount  *int
	CategoryID  *string

	Image            io.Reader
	ImageFilename    string
	ImageContentType string
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in UpdateProductInput) (*entity.Product, error) {
	p, err := s.Products.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "product not found")
	}

	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		p.Name = strings.ToLower(strings.TrimSpace(*in.Name))
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) != "" {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, apperr.InvalidInput("price must not be negative")
		}
		p.Price = *in.Price
	}
	if in.StockCount != nil {
		if *in.StockCount < 0 {
			return nil, apperr.InvalidInput("stock count must not be negative")
		}
		p.StockCount = *in.StockCount
	}
	if in.CategoryID != nil && *in.CategoryID != "" {
		if _, err := s.Categories.GetByID(ctx, *in.CategoryID); err != nil {
			return nil, mapNotFound(err, "category not found")
		}
		p.CategoryID = *in.CategoryID
	}
	if in.Image != nil {
		url, err := s.uploadImage(ctx, in.Image, in.ImageFilename, in.ImageContentType)
		if err != nil {
			return nil, apperr.UploadFailed(err)
		}
		p.ImageURL = url
	}

	if err := s.Products.Update(ctx, p); err != nil {
		return nil, mapNotFound(err, "product not found")
	}
	s.invalidateProduct(ctx, p.ID)
	s.indexProduct(ctx, p)
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.Products.Delete(ctx, id); err != nil {
		return mapNotFound(err, "product not found")
	}
	s.invalidateProduct(ctx, id)
	s.deleteFromIndex(ctx, id)
	return nil
}

// GetProduct serves the detail from Redis when possible, falling back to the
// database and repopulating the cache.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	if s.Redis != nil {
		var cached entity.Product
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, productCacheKey(id), &cached); err == nil && ok {
			return &cached, nil
		}
	}

	p, err := s.Products.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "product not found")
	}
	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, productCacheKey(id), p, productCacheTTL); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("product_id", id).Warn("product cache write failed")
		}
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, f repository.ProductFilter) ([]entity.Product, int, error) {
	return s.Products.List(ctx, f)
}

// AddReview records a customer rating; a repeat review by the same user
// replaces the previous one. Aggregates are kept consistent by the repository
// transaction, so only the cache needs invalidating here.
func (s *CatalogService) AddReview(ctx context.Context, productID, userID string, rating int, comment string) (*entity.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.InvalidInput("rating must be between 1 and 5")
	}
	rev := &entity.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
	}
	if err := s.Reviews.Upsert(ctx, rev); err != nil {
		return nil, mapNotFound(err, "product not found")
	}
	s.invalidateProduct(ctx, productID)
	if p, err := s.Products.GetByID(ctx, productID); err == nil {
		s.indexProduct(ctx, p)
	}
	return rev, nil
}

func (s *CatalogService) ListReviews(ctx context.Context, productID string) ([]entity.Review, error) {
	return s.Reviews.ListByProduct(ctx, productID)
}

// SearchProducts runs a multi_match query over name and description.
func (s *CatalogService) SearchProducts(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"name^2", "description"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperr.StoreUnavailable(err)
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

func (s *CatalogService) uploadImage(ctx context.Context, r io.Reader, filename, contentType string) (string, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return "", errors.New("storage not configured")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("products", uuid.NewString()+ext))
	return helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
}

func (s *CatalogService) indexProduct(ctx context.Context, p *entity.Product) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	doc := map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"category_id": p.CategoryID,
		"image_url":   p.ImageURL,
		"rating":      p.Rating,
		"num_reviews": p.NumReviews,
		"updated_at":  p.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: p.ID, Body: strings.NewReader(string(b)), Refresh: "false"}

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("product_id", p.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("product_id", p.ID).Warn("es index response error")
	}
}

func (s *CatalogService) deleteFromIndex(ctx context.Context, id string) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESIndex, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("product_id", id).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

func (s *CatalogService) invalidateProduct(ctx context.Context, id string) {
	if s.Redis == nil {
		return
	}
	if err := helpers.RedisDel(ctx, s.Redis, productCacheKey(id)); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("product_id", id).Warn("product cache invalidation failed")
	}
}

func mapNotFound(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msg)
	}
	return err
}
