package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/waraqa-store/api/internal/changefeed"
	"github.com/waraqa-store/api/internal/database"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
type mockTx struct {
	committed  bool
	commitErr  error
	rolledBack bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.committed = true
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { m.rolledBack = true; return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

type mockCategoryQuerier struct {
	mu       sync.Mutex
	rows     []database.Category
	listErr  error
	lists    int
	count    int64
	deleteFn func(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	created  []string
}

func (m *mockCategoryQuerier) ListCategories(ctx context.Context) ([]database.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]database.Category, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *mockCategoryQuerier) CreateCategory(ctx context.Context, name string) (database.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, name)
	return database.Category{ID: uuid.New(), Name: name}, nil
}

func (m *mockCategoryQuerier) UpdateCategory(ctx context.Context, arg database.UpdateCategoryParams) (database.Category, error) {
	for _, c := range m.rows {
		if c.ID == arg.ID {
			return database.Category{ID: arg.ID, Name: arg.Name}, nil
		}
	}
	return database.Category{}, pgx.ErrNoRows
}

func (m *mockCategoryQuerier) DeleteCategory(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return id, nil
}

func (m *mockCategoryQuerier) CountProductsByCategory(ctx context.Context, id uuid.UUID) (int64, error) {
	return m.count, nil
}

func (m *mockCategoryQuerier) listCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists
}

func (m *mockCategoryQuerier) setRows(rows []database.Category) {
	m.mu.Lock()
	m.rows = rows
	m.mu.Unlock()
}

type mockProductQuerier struct {
	mu            sync.Mutex
	products      []database.Product
	images        map[uuid.UUID][]database.ProductImage
	imagesErr     error
	createFn      func(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	updateFn      func(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	createdImages []database.CreateProductImagesParams
	deletedImages []uuid.UUID
	imagesErrOn   func(params []database.CreateProductImagesParams) error
}

func (m *mockProductQuerier) ListProducts(ctx context.Context) ([]database.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]database.Product, len(m.products))
	copy(out, m.products)
	return out, nil
}

func (m *mockProductQuerier) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return database.Product{}, pgx.ErrNoRows
}

func (m *mockProductQuerier) CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error) {
	if m.createFn != nil {
		return m.createFn(ctx, arg)
	}
	return database.Product{
		ID: uuid.New(), Name: arg.Name, Price: arg.Price, Discount: arg.Discount,
		Image: arg.Image, CategoryID: arg.CategoryID, Description: arg.Description,
	}, nil
}

func (m *mockProductQuerier) UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, arg)
	}
	return database.Product{
		ID: arg.ID, Name: arg.Name, Price: arg.Price, Discount: arg.Discount,
		Image: arg.Image, CategoryID: arg.CategoryID, Description: arg.Description,
	}, nil
}

func (m *mockProductQuerier) DeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if _, err := m.GetProduct(ctx, id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (m *mockProductQuerier) ListProductImages(ctx context.Context, productID uuid.UUID) ([]database.ProductImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.imagesErr != nil {
		return nil, m.imagesErr
	}
	return m.images[productID], nil
}

func (m *mockProductQuerier) DeleteProductImages(ctx context.Context, productID uuid.UUID) error {
	m.deletedImages = append(m.deletedImages, productID)
	return nil
}

func (m *mockProductQuerier) CreateProductImages(ctx context.Context, arg []database.CreateProductImagesParams) (int64, error) {
	if m.imagesErrOn != nil {
		if err := m.imagesErrOn(arg); err != nil {
			return 0, err
		}
	}
	m.createdImages = append(m.createdImages, arg...)
	return int64(len(arg)), nil
}

// --- Helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func newProductStore(t *testing.T, q *mockProductQuerier) (*ProductStore, *mockTx, *changefeed.Listener) {
	t.Helper()
	feed := changefeed.NewListener(nil, nil)
	tx := &mockTx{}
	s, err := NewProductStore(context.Background(), q, &mockTxBeginner{tx: tx},
		func(db database.DBTX) ProductQuerier { return q }, feed)
	if err != nil {
		t.Fatalf("new product store: %v", err)
	}
	t.Cleanup(s.Close)
	return s, tx, feed
}

// --- Category store ---

func TestCategoryStore_LoadAndRefetchOnChange(t *testing.T) {
	first := database.Category{ID: uuid.New(), Name: "أقلام"}
	q := &mockCategoryQuerier{rows: []database.Category{first}}
	feed := changefeed.NewListener(nil, nil)

	s, err := NewCategoryStore(context.Background(), q, feed)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	if got := s.List(); len(got) != 1 || got[0].Name != "أقلام" {
		t.Fatalf("unexpected initial list %v", got)
	}

	second := database.Category{ID: uuid.New(), Name: "كشاكيل"}
	q.setRows([]database.Category{first, second})
	feed.Dispatch(changefeed.Change{Table: "categories", Op: "INSERT", ID: second.ID.String()})

	waitFor(t, func() bool { return len(s.List()) == 2 })
	if c, ok := s.Get(second.ID); !ok || c.Name != "كشاكيل" {
		t.Errorf("expected new category by id, got %v %v", c, ok)
	}
}

func TestCategoryStore_IgnoresOtherTables(t *testing.T) {
	q := &mockCategoryQuerier{}
	feed := changefeed.NewListener(nil, nil)
	s, err := NewCategoryStore(context.Background(), q, feed)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	feed.Dispatch(changefeed.Change{Table: "orders", Op: "INSERT"})
	time.Sleep(20 * time.Millisecond)
	if n := q.listCount(); n != 1 {
		t.Errorf("expected only the initial fetch, got %d", n)
	}
}

func TestCategoryStore_InitialLoadFailure(t *testing.T) {
	q := &mockCategoryQuerier{listErr: errors.New("db down")}
	if _, err := NewCategoryStore(context.Background(), q, changefeed.NewListener(nil, nil)); err == nil {
		t.Fatal("expected error")
	}
}

func TestCategoryStore_RefetchFailureKeepsList(t *testing.T) {
	q := &mockCategoryQuerier{rows: []database.Category{{ID: uuid.New(), Name: "أقلام"}}}
	feed := changefeed.NewListener(nil, nil)
	s, _ := NewCategoryStore(context.Background(), q, feed)
	defer s.Close()

	q.mu.Lock()
	q.listErr = errors.New("db down")
	q.mu.Unlock()
	feed.Dispatch(changefeed.Change{Table: "categories", Op: "DELETE"})

	waitFor(t, func() bool { return q.listCount() == 2 })
	if len(s.List()) != 1 {
		t.Error("failed refetch should keep the previous list")
	}
}

func TestCategoryStore_AddDoesNotPatchCache(t *testing.T) {
	q := &mockCategoryQuerier{}
	s, _ := NewCategoryStore(context.Background(), q, changefeed.NewListener(nil, nil))
	defer s.Close()

	c, err := s.Add(context.Background(), "  ألوان ")
	if err != nil || c.Name != "ألوان" {
		t.Fatalf("unexpected %v %v", c, err)
	}
	if len(s.List()) != 0 {
		t.Error("cache must only change through the feed")
	}
	if _, err := s.Add(context.Background(), "   "); !errors.Is(err, ErrNameRequired) {
		t.Errorf("expected ErrNameRequired, got %v", err)
	}
}

func TestCategoryStore_Update(t *testing.T) {
	id := uuid.New()
	q := &mockCategoryQuerier{rows: []database.Category{{ID: id, Name: "old"}}}
	s, _ := NewCategoryStore(context.Background(), q, changefeed.NewListener(nil, nil))
	defer s.Close()

	if c, err := s.Update(context.Background(), id, "new"); err != nil || c.Name != "new" {
		t.Errorf("unexpected %v %v", c, err)
	}
	if _, err := s.Update(context.Background(), uuid.New(), "x"); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestCategoryStore_DeleteInUse(t *testing.T) {
	deleted := false
	q := &mockCategoryQuerier{
		count: 3,
		deleteFn: func(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
			deleted = true
			return id, nil
		},
	}
	s, _ := NewCategoryStore(context.Background(), q, changefeed.NewListener(nil, nil))
	defer s.Close()

	if err := s.Delete(context.Background(), uuid.New()); !errors.Is(err, ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}
	if deleted {
		t.Error("delete must not run while products reference the category")
	}
}

func TestCategoryStore_DeleteRaceMapsForeignKey(t *testing.T) {
	q := &mockCategoryQuerier{
		deleteFn: func(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
			return uuid.Nil, &pgconn.PgError{Code: "23503"}
		},
	}
	s, _ := NewCategoryStore(context.Background(), q, changefeed.NewListener(nil, nil))
	defer s.Close()

	if err := s.Delete(context.Background(), uuid.New()); !errors.Is(err, ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}
}

func TestCategoryStore_DeleteNotFound(t *testing.T) {
	q := &mockCategoryQuerier{
		deleteFn: func(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
			return uuid.Nil, pgx.ErrNoRows
		},
	}
	s, _ := NewCategoryStore(context.Background(), q, changefeed.NewListener(nil, nil))
	defer s.Close()

	if err := s.Delete(context.Background(), uuid.New()); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestCategoryStore_CloseIsIdempotent(t *testing.T) {
	s, _ := NewCategoryStore(context.Background(), &mockCategoryQuerier{}, changefeed.NewListener(nil, nil))
	s.Close()
	s.Close()
}

// --- Product store ---

func TestProductStore_LoadsImagesInOrder(t *testing.T) {
	withImages := database.Product{ID: uuid.New(), Name: "Pen", Price: makeNumeric("10.00"), Discount: makeNumeric("1.00")}
	legacy := database.Product{ID: uuid.New(), Name: "Ruler", Price: makeNumeric("15.00"), Image: pgtype.Text{String: "http://img/legacy.png", Valid: true}}
	bare := database.Product{ID: uuid.New(), Name: "Eraser", Price: makeNumeric("5.00")}
	q := &mockProductQuerier{
		products: []database.Product{withImages, legacy, bare},
		images: map[uuid.UUID][]database.ProductImage{
			withImages.ID: {
				{ProductID: withImages.ID, ImageUrl: "http://img/a.png", DisplayOrder: 0},
				{ProductID: withImages.ID, ImageUrl: "http://img/b.png", DisplayOrder: 1},
			},
		},
	}
	s, _, _ := newProductStore(t, q)

	list := s.List(nil)
	if len(list) != 3 || list[0].Name != "Pen" || list[2].Name != "Eraser" {
		t.Fatalf("unexpected order %v", list)
	}
	if list[0].Image != "http://img/a.png" || len(list[0].Images) != 2 {
		t.Errorf("expected primary a.png with 2 images, got %+v", list[0])
	}
	if list[1].Image != "http://img/legacy.png" || len(list[1].Images) != 1 {
		t.Errorf("expected legacy image fallback, got %+v", list[1])
	}
	if list[2].Image != "" || len(list[2].Images) != 0 {
		t.Errorf("expected no images, got %+v", list[2])
	}
	if !list[0].EffectivePrice().Equal(decimal.NewFromInt(9)) {
		t.Errorf("expected effective price 9, got %s", list[0].EffectivePrice())
	}
}

func TestProductStore_FilterByCategory(t *testing.T) {
	cat := uuid.New()
	q := &mockProductQuerier{products: []database.Product{
		{ID: uuid.New(), Name: "In", Price: makeNumeric("1"), CategoryID: pgtype.UUID{Bytes: cat, Valid: true}},
		{ID: uuid.New(), Name: "Out", Price: makeNumeric("1")},
	}}
	s, _, _ := newProductStore(t, q)

	got := s.List(&cat)
	if len(got) != 1 || got[0].Name != "In" {
		t.Errorf("unexpected filter result %v", got)
	}
}

func TestProductStore_ImageFetchFailureFailsLoad(t *testing.T) {
	q := &mockProductQuerier{
		products:  []database.Product{{ID: uuid.New(), Name: "Pen", Price: makeNumeric("1")}},
		imagesErr: errors.New("timeout"),
	}
	_, err := NewProductStore(context.Background(), q, &mockTxBeginner{tx: &mockTx{}},
		func(db database.DBTX) ProductQuerier { return q }, changefeed.NewListener(nil, nil))
	if err == nil {
		t.Fatal("expected error when an image fetch fails")
	}
}

func TestProductStore_RefetchOnImageChange(t *testing.T) {
	p := database.Product{ID: uuid.New(), Name: "Pen", Price: makeNumeric("1")}
	q := &mockProductQuerier{products: []database.Product{p}, images: map[uuid.UUID][]database.ProductImage{}}
	s, _, feed := newProductStore(t, q)

	q.mu.Lock()
	q.images[p.ID] = []database.ProductImage{{ProductID: p.ID, ImageUrl: "http://img/new.png"}}
	q.mu.Unlock()
	feed.Dispatch(changefeed.Change{Table: "product_images", Op: "INSERT", ID: p.ID.String()})

	waitFor(t, func() bool {
		got, _ := s.Get(p.ID)
		return got.Image == "http://img/new.png"
	})
}

func TestProductStore_AddValidation(t *testing.T) {
	s, _, _ := newProductStore(t, &mockProductQuerier{})
	ctx := context.Background()

	tests := []struct {
		name string
		in   ProductInput
		want error
	}{
		{"no name", ProductInput{Price: decimal.NewFromInt(1), Images: []string{"x"}}, ErrNameRequired},
		{"negative price", ProductInput{Name: "a", Price: decimal.NewFromInt(-1), Images: []string{"x"}}, ErrInvalidPrice},
		{"discount above price", ProductInput{Name: "a", Price: decimal.NewFromInt(10), Discount: decimal.NewFromInt(11), Images: []string{"x"}}, ErrInvalidDiscount},
		{"negative discount", ProductInput{Name: "a", Price: decimal.NewFromInt(10), Discount: decimal.NewFromInt(-1), Images: []string{"x"}}, ErrInvalidDiscount},
		{"no images", ProductInput{Name: "a", Price: decimal.NewFromInt(10)}, ErrImageRequired},
		{"blank images", ProductInput{Name: "a", Price: decimal.NewFromInt(10), Images: []string{" "}}, ErrImageRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Add(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestProductStore_Add(t *testing.T) {
	q := &mockProductQuerier{}
	s, tx, _ := newProductStore(t, q)
	cat := uuid.New()

	p, err := s.Add(context.Background(), ProductInput{
		Name:       "Backpack",
		Price:      decimal.NewFromInt(100),
		Discount:   decimal.NewFromInt(10),
		CategoryID: &cat,
		Images:     []string{"http://img/1.png", "http://img/2.png"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Error("expected commit")
	}
	if p.Image != "http://img/1.png" || len(p.Images) != 2 || *p.CategoryID != cat {
		t.Errorf("unexpected product %+v", p)
	}
	if len(q.createdImages) != 2 || q.createdImages[1].DisplayOrder != 1 || q.createdImages[1].ImageUrl != "http://img/2.png" {
		t.Errorf("unexpected image rows %+v", q.createdImages)
	}
	if len(s.List(nil)) != 0 {
		t.Error("cache must only change through the feed")
	}
}

func TestProductStore_AddUnknownCategory(t *testing.T) {
	q := &mockProductQuerier{
		createFn: func(ctx context.Context, arg database.CreateProductParams) (database.Product, error) {
			return database.Product{}, &pgconn.PgError{Code: "23503"}
		},
	}
	s, tx, _ := newProductStore(t, q)

	_, err := s.Add(context.Background(), ProductInput{Name: "a", Price: decimal.NewFromInt(1), Images: []string{"x"}})
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if tx.committed || !tx.rolledBack {
		t.Error("expected rollback")
	}
}

func TestProductStore_AddImageFailureRollsBack(t *testing.T) {
	q := &mockProductQuerier{
		imagesErrOn: func([]database.CreateProductImagesParams) error { return errors.New("copy failed") },
	}
	s, tx, _ := newProductStore(t, q)

	if _, err := s.Add(context.Background(), ProductInput{Name: "a", Price: decimal.NewFromInt(1), Images: []string{"x"}}); err == nil {
		t.Fatal("expected error")
	}
	if tx.committed {
		t.Error("product row must not be committed without its images")
	}
}

func TestProductStore_UpdateKeepsImagesWhenNil(t *testing.T) {
	p := database.Product{ID: uuid.New(), Name: "Pen", Price: makeNumeric("10"), Image: pgtype.Text{String: "http://img/a.png", Valid: true}}
	q := &mockProductQuerier{
		products: []database.Product{p},
		images:   map[uuid.UUID][]database.ProductImage{p.ID: {{ProductID: p.ID, ImageUrl: "http://img/a.png"}}},
	}
	s, _, _ := newProductStore(t, q)

	got, err := s.Update(context.Background(), p.ID, ProductInput{Name: "Pen 2", Price: decimal.NewFromInt(12)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Image != "http://img/a.png" || got.Name != "Pen 2" {
		t.Errorf("unexpected product %+v", got)
	}
	if len(q.deletedImages) != 0 || len(q.createdImages) != 0 {
		t.Error("images must be untouched")
	}
}

func TestProductStore_UpdateReplacesImages(t *testing.T) {
	p := database.Product{ID: uuid.New(), Name: "Pen", Price: makeNumeric("10")}
	q := &mockProductQuerier{products: []database.Product{p}}
	s, _, _ := newProductStore(t, q)

	got, err := s.Update(context.Background(), p.ID, ProductInput{
		Name: "Pen", Price: decimal.NewFromInt(10), Images: []string{"http://img/z.png", "http://img/y.png"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Image != "http://img/z.png" {
		t.Errorf("primary image must be the first image, got %s", got.Image)
	}
	if len(q.deletedImages) != 1 || len(q.createdImages) != 2 {
		t.Errorf("expected delete + insert, got %v %v", q.deletedImages, q.createdImages)
	}
}

func TestProductStore_UpdateEmptyImagesRejected(t *testing.T) {
	p := database.Product{ID: uuid.New(), Name: "Pen", Price: makeNumeric("10")}
	s, _, _ := newProductStore(t, &mockProductQuerier{products: []database.Product{p}})

	_, err := s.Update(context.Background(), p.ID, ProductInput{Name: "Pen", Price: decimal.NewFromInt(10), Images: []string{}})
	if !errors.Is(err, ErrImageRequired) {
		t.Errorf("expected ErrImageRequired, got %v", err)
	}
}

func TestProductStore_UpdateNotFound(t *testing.T) {
	s, _, _ := newProductStore(t, &mockProductQuerier{})
	_, err := s.Update(context.Background(), uuid.New(), ProductInput{Name: "x", Price: decimal.NewFromInt(1)})
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductStore_Delete(t *testing.T) {
	p := database.Product{ID: uuid.New(), Name: "Pen", Price: makeNumeric("10")}
	s, _, _ := newProductStore(t, &mockProductQuerier{products: []database.Product{p}})

	if err := s.Delete(context.Background(), p.ID); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := s.Delete(context.Background(), uuid.New()); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProduct_Snapshot(t *testing.T) {
	p := Product{ID: uuid.New(), Name: "Pen", Price: decimal.NewFromInt(10), Discount: decimal.NewFromInt(2), Image: "x"}
	snap := p.Snapshot()
	if snap.ID != p.ID || !snap.EffectivePrice().Equal(decimal.NewFromInt(8)) {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}
