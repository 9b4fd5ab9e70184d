package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/waraqa-store/api/internal/cart"
	"github.com/waraqa-store/api/internal/database"
	"github.com/waraqa-store/api/internal/enum"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPrice    = errors.New("price must be >= 0")
	ErrInvalidDiscount = errors.New("discount must be between 0 and price")
	ErrImageRequired   = errors.New("at least one image is required")
	ErrUnknownCategory = errors.New("category does not exist")
)

const imageFetchConcurrency = 8

// Product is a catalog entry with its ordered image list. Images[0] is the
// primary image.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
	Image       string          `json:"image"`
	Images      []string        `json:"images"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (p Product) EffectivePrice() decimal.Decimal {
	return p.Price.Sub(p.Discount)
}

// Snapshot freezes the product for a cart line.
func (p Product) Snapshot() cart.Product {
	return cart.Product{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Discount: p.Discount,
		Image:    p.Image,
	}
}

// ProductInput is the admin form for a product.
type ProductInput struct {
	Name        string
	Price       decimal.Decimal
	Discount    decimal.Decimal
	CategoryID  *uuid.UUID
	Description string
	// Images replaces the image list in order. On update a nil slice keeps
	// the current images.
	Images []string
}

func (in *ProductInput) validate(requireImages bool) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if in.Discount.IsNegative() || in.Discount.GreaterThan(in.Price) {
		return ErrInvalidDiscount
	}
	var images []string
	for _, u := range in.Images {
		if u = strings.TrimSpace(u); u != "" {
			images = append(images, u)
		}
	}
	if in.Images != nil {
		in.Images = images
	}
	if requireImages && len(in.Images) == 0 {
		return ErrImageRequired
	}
	return nil
}

// ProductQuerier is satisfied by *database.Queries.
type ProductQuerier interface {
	ListProducts(ctx context.Context) ([]database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListProductImages(ctx context.Context, productID uuid.UUID) ([]database.ProductImage, error)
	DeleteProductImages(ctx context.Context, productID uuid.UUID) error
	CreateProductImages(ctx context.Context, arg []database.CreateProductImagesParams) (int64, error)
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// NewProductQuerier binds a ProductQuerier to a pool or transaction.
type NewProductQuerier func(db database.DBTX) ProductQuerier

// ProductStore caches products with their images, ordered by creation
// time. Writes go through a transaction; the cache follows the change feed.
type ProductStore struct {
	q        ProductQuerier
	pool     TxBeginner
	newStore NewProductQuerier

	mu    sync.RWMutex
	items []Product
	byID  map[uuid.UUID]Product

	f *follower
}

// NewProductStore loads all products and subscribes to product and
// product image changes.
func NewProductStore(ctx context.Context, q ProductQuerier, pool TxBeginner, newStore NewProductQuerier, feed Feed) (*ProductStore, error) {
	s := &ProductStore{q: q, pool: pool, newStore: newStore}
	if err := s.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	s.f = follow(feed, "products", s.Refresh, enum.TableProducts, enum.TableProductImages)
	return s, nil
}

// Refresh refetches every product and, concurrently, each product's
// images. Any failed fetch fails the refresh and keeps the old list.
func (s *ProductStore) Refresh(ctx context.Context) error {
	rows, err := s.q.ListProducts(ctx)
	if err != nil {
		return err
	}

	images := make([][]database.ProductImage, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imageFetchConcurrency)
	for i, row := range rows {
		g.Go(func() error {
			imgs, err := s.q.ListProductImages(gctx, row.ID)
			if err != nil {
				return fmt.Errorf("images of %s: %w", row.ID, err)
			}
			images[i] = imgs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	items := make([]Product, len(rows))
	byID := make(map[uuid.UUID]Product, len(rows))
	for i, row := range rows {
		items[i] = toProduct(row, images[i])
		byID[row.ID] = items[i]
	}

	s.mu.Lock()
	s.items = items
	s.byID = byID
	s.mu.Unlock()
	return nil
}

func toProduct(row database.Product, imgs []database.ProductImage) Product {
	p := Product{
		ID:          row.ID,
		Name:        row.Name,
		Price:       database.NumericToDecimal(row.Price),
		Discount:    database.NumericToDecimal(row.Discount),
		Description: row.Description.String,
		CreatedAt:   row.CreatedAt,
	}
	if row.CategoryID.Valid {
		id := uuid.UUID(row.CategoryID.Bytes)
		p.CategoryID = &id
	}
	p.Images = make([]string, 0, len(imgs))
	for _, img := range imgs {
		p.Images = append(p.Images, img.ImageUrl)
	}
	if len(p.Images) == 0 && row.Image.Valid && row.Image.String != "" {
		p.Images = append(p.Images, row.Image.String)
	}
	if len(p.Images) > 0 {
		p.Image = p.Images[0]
	}
	return p
}

// List returns the cached products, optionally filtered by category.
func (s *ProductStore) List(categoryID *uuid.UUID) []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.items))
	for _, p := range s.items {
		if categoryID != nil && (p.CategoryID == nil || *p.CategoryID != *categoryID) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *ProductStore) Get(id uuid.UUID) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	return p, ok
}

func optionalText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	return pgtype.Text{String: s, Valid: s != ""}
}

func optionalUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

// Add creates a product and its image list in one transaction.
func (s *ProductStore) Add(ctx context.Context, in ProductInput) (Product, error) {
	if err := in.validate(true); err != nil {
		return Product{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Product{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	row, err := store.CreateProduct(ctx, database.CreateProductParams{
		Name:        in.Name,
		Price:       database.DecimalToNumeric(in.Price),
		Discount:    database.DecimalToNumeric(in.Discount),
		Image:       optionalText(in.Images[0]),
		CategoryID:  optionalUUID(in.CategoryID),
		Description: optionalText(in.Description),
	})
	if err != nil {
		return Product{}, mapWriteError(err)
	}

	imgs, err := replaceImages(ctx, store, row.ID, in.Images)
	if err != nil {
		return Product{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Product{}, fmt.Errorf("commit: %w", err)
	}
	return toProduct(row, imgs), nil
}

// Update rewrites a product and, when in.Images is non-nil, its images.
func (s *ProductStore) Update(ctx context.Context, id uuid.UUID, in ProductInput) (Product, error) {
	replacing := in.Images != nil
	if err := in.validate(replacing); err != nil {
		return Product{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Product{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	current, err := store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}

	primary := current.Image
	if replacing {
		primary = optionalText(in.Images[0])
	}

	row, err := store.UpdateProduct(ctx, database.UpdateProductParams{
		ID:          id,
		Name:        in.Name,
		Price:       database.DecimalToNumeric(in.Price),
		Discount:    database.DecimalToNumeric(in.Discount),
		Image:       primary,
		CategoryID:  optionalUUID(in.CategoryID),
		Description: optionalText(in.Description),
	})
	if err != nil {
		return Product{}, mapWriteError(err)
	}

	var imgs []database.ProductImage
	if replacing {
		if err := store.DeleteProductImages(ctx, id); err != nil {
			return Product{}, fmt.Errorf("delete images: %w", err)
		}
		imgs, err = replaceImages(ctx, store, id, in.Images)
	} else {
		imgs, err = store.ListProductImages(ctx, id)
	}
	if err != nil {
		return Product{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Product{}, fmt.Errorf("commit: %w", err)
	}
	return toProduct(row, imgs), nil
}

// replaceImages inserts urls with display_order equal to their index.
func replaceImages(ctx context.Context, store ProductQuerier, productID uuid.UUID, urls []string) ([]database.ProductImage, error) {
	params := make([]database.CreateProductImagesParams, len(urls))
	imgs := make([]database.ProductImage, len(urls))
	for i, u := range urls {
		params[i] = database.CreateProductImagesParams{ProductID: productID, ImageUrl: u, DisplayOrder: int32(i)}
		imgs[i] = database.ProductImage{ProductID: productID, ImageUrl: u, DisplayOrder: int32(i)}
	}
	if len(params) == 0 {
		return imgs, nil
	}
	if _, err := store.CreateProductImages(ctx, params); err != nil {
		return nil, fmt.Errorf("insert images: %w", err)
	}
	return imgs, nil
}

// Delete removes a product; its images cascade. Past order lines keep
// their snapshot and lose the reference.
func (s *ProductStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.q.DeleteProduct(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProductNotFound
	}
	return err
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrUnknownCategory
	}
	return fmt.Errorf("write product: %w", err)
}

// Close stops following the change feed.
func (s *ProductStore) Close() {
	s.f.close()
}
