package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/storelabs/storefront/internal/domain/entity"
	"github.com/storelabs/storefront/internal/domain/repository"
	"github.com/storelabs/storefront/pkg/apperr"
)

type mockCategoryRepo struct {
	categories map[string]*entity.Category
}

func newMockCategoryRepo() *mockCategoryRepo {
	return &mockCategoryRepo{categories: map[string]*entity.Category{}}
}

func (m *mockCategoryRepo) Create(_ context.Context, c *entity.Category) error {
	c.ID = uuid.NewString()
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *mockCategoryRepo) Update(_ context.Context, c *entity.Category) error {
	if _, ok := m.categories[c.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *mockCategoryRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.categories[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id string) (*entity.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCategoryRepo) List(_ context.Context) ([]entity.Category, error) {
	out := make([]entity.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, *c)
	}
	return out, nil
}

type mockProductRepo struct {
	products map[string]*entity.Product
	getCalls int
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: map[string]*entity.Product{}}
}

func (m *mockProductRepo) Create(_ context.Context, p *entity.Product) error {
	p.ID = uuid.NewString()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepo) Update(_ context.Context, p *entity.Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	m.getCalls++
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) List(_ context.Context, f repository.ProductFilter) ([]entity.Product, int, error) {
	out := make([]entity.Product, 0, len(m.products))
	for _, p := range m.products {
		if f.CategoryID != "" && p.CategoryID != f.CategoryID {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

type mockReviewRepo struct {
	reviews map[string]*entity.Review // keyed by productID+userID
}

func newMockReviewRepo() *mockReviewRepo {
	return &mockReviewRepo{reviews: map[string]*entity.Review{}}
}

func (m *mockReviewRepo) Upsert(_ context.Context, r *entity.Review) error {
	key := r.ProductID + "/" + r.UserID
	if existing, ok := m.reviews[key]; ok {
		r.ID = existing.ID
	} else {
		r.ID = uuid.NewString()
	}
	cp := *r
	m.reviews[key] = &cp
	return nil
}

func (m *mockReviewRepo) ListByProduct(_ context.Context, productID string) ([]entity.Review, error) {
	out := []entity.Review{}
	for _, r := range m.reviews {
		if r.ProductID == productID {
			out = append(out, *r)
		}
	}
	return out, nil
}

var (
	_ repository.CategoryRepository = (*mockCategoryRepo)(nil)
	_ repository.ProductRepository  = (*mockProductRepo)(nil)
	_ repository.ReviewRepository   = (*mockReviewRepo)(nil)
)

func newTestCatalog(t *testing.T, withRedis bool) (*CatalogService, *mockCategoryRepo, *mockProductRepo, *mockReviewRepo) {
	t.Helper()
	categories := newMockCategoryRepo()
	products := newMockProductRepo()
	reviews := newMockReviewRepo()

	var rdb *redis.Client
	if withRedis {
		mr, err := miniredis.Run()
		if err != nil {
			t.Fatalf("miniredis: %v", err)
		}
		t.Cleanup(mr.Close)
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	}

	svc := NewCatalogService(categories, products, reviews, nil, "", rdb, nil, "", nil)
	return svc, categories, products, reviews
}

func seedProduct(t *testing.T, categories *mockCategoryRepo, products *mockProductRepo) *entity.Product {
	t.Helper()
	cat := &entity.Category{Name: "electronics"}
	if err := categories.Create(context.Background(), cat); err != nil {
		t.Fatalf("seed category: %v", err)
	}
	p := &entity.Product{
		Name:        "widget",
		Description: "a widget",
		Price:       9.99,
		StockCount:  3,
		CategoryID:  cat.ID,
		ImageURL:    "https://img.example/widget.png",
	}
	if err := products.Create(context.Background(), p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func TestCreateProductValidation(t *testing.T) {
	svc, categories, _, _ := newTestCatalog(t, false)
	cat := &entity.Category{Name: "electronics"}
	if err := categories.Create(context.Background(), cat); err != nil {
		t.Fatalf("seed category: %v", err)
	}

	cases := []CreateProductInput{
		{Description: "d", CategoryID: cat.ID, Image: strings.NewReader("x")}, // no name
		{Name: "n", Description: "d", CategoryID: cat.ID},                     // no image
		{Name: "n", Description: "d", CategoryID: cat.ID, Price: -1, Image: strings.NewReader("x")},
		{Name: "n", Description: "d", CategoryID: "missing", Image: strings.NewReader("x")},
	}
	for i, in := range cases {
		if _, err := svc.CreateProduct(context.Background(), in); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestGetProductCachesInRedis(t *testing.T) {
	svc, categories, products, _ := newTestCatalog(t, true)
	p := seedProduct(t, categories, products)

	first, err := svc.GetProduct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	callsAfterFirst := products.getCalls

	second, err := svc.GetProduct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetProduct (cached) failed: %v", err)
	}
	if products.getCalls != callsAfterFirst {
		t.Fatal("second read must come from the cache")
	}
	if first.ID != second.ID || first.Name != second.Name {
		t.Fatal("cached product differs from the stored one")
	}
}

func TestUpdateProductInvalidatesCache(t *testing.T) {
	svc, categories, products, _ := newTestCatalog(t, true)
	p := seedProduct(t, categories, products)

	if _, err := svc.GetProduct(context.Background(), p.ID); err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}

	newName := "Gizmo"
	if _, err := svc.UpdateProduct(context.Background(), p.ID, UpdateProductInput{Name: &newName}); err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}

	got, err := svc.GetProduct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetProduct after update failed: %v", err)
	}
	if got.Name != "gizmo" {
		t.Fatalf("name = %q, want lowercased gizmo", got.Name)
	}
}

func TestAddReviewValidatesRating(t *testing.T) {
	svc, categories, products, _ := newTestCatalog(t, false)
	p := seedProduct(t, categories, products)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.AddReview(context.Background(), p.ID, "u1", rating, "meh")
		var ae *apperr.Error
		if !errors.As(err, &ae) || ae.StatusCode != 400 {
			t.Fatalf("rating %d: err = %v, want 400", rating, err)
		}
	}
}

func TestAddReviewReplacesPrevious(t *testing.T) {
	svc, categories, products, reviews := newTestCatalog(t, false)
	p := seedProduct(t, categories, products)

	if _, err := svc.AddReview(context.Background(), p.ID, "u1", 2, "meh"); err != nil {
		t.Fatalf("AddReview failed: %v", err)
	}
	if _, err := svc.AddReview(context.Background(), p.ID, "u1", 5, "actually great"); err != nil {
		t.Fatalf("second AddReview failed: %v", err)
	}

	list, err := reviews.ListByProduct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("ListByProduct failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d reviews, want 1", len(list))
	}
	if list[0].Rating != 5 {
		t.Fatalf("rating = %d, want the replacement 5", list[0].Rating)
	}
}

func TestUpdateCategoryNotFound(t *testing.T) {
	svc, _, _, _ := newTestCatalog(t, false)
	_, err := svc.UpdateCategory(context.Background(), "missing", "new", "")
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.StatusCode != 404 {
		t.Fatalf("err = %v, want 404", err)
	}
}
