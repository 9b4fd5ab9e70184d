package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type DeliveryFee struct {
	Governorate string         `json:"governorate"`
	Fee         pgtype.Numeric `json:"fee"`
}

type Order struct {
	ID               uuid.UUID      `json:"id"`
	CustomerName     string         `json:"customer_name"`
	CustomerPhone    string         `json:"customer_phone"`
	Governorate      string         `json:"governorate"`
	City             string         `json:"city"`
	FullAddress      string         `json:"full_address"`
	PaymentMethod    string         `json:"payment_method"`
	Subtotal         pgtype.Numeric `json:"subtotal"`
	DeliveryFee      pgtype.Numeric `json:"delivery_fee"`
	Total            pgtype.Numeric `json:"total"`
	Status           string         `json:"status"`
	TransferImageUrl pgtype.Text    `json:"transfer_image_url"`
	Notes            pgtype.Text    `json:"notes"`
	CreatedAt        time.Time      `json:"created_at"`
}

type OrderItem struct {
	ID              uuid.UUID      `json:"id"`
	OrderID         uuid.UUID      `json:"order_id"`
	ProductID       pgtype.UUID    `json:"product_id"`
	ProductName     string         `json:"product_name"`
	ProductPrice    pgtype.Numeric `json:"product_price"`
	ProductDiscount pgtype.Numeric `json:"product_discount"`
	Quantity        int32          `json:"quantity"`
}

type Product struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Price       pgtype.Numeric `json:"price"`
	Discount    pgtype.Numeric `json:"discount"`
	Image       pgtype.Text    `json:"image"`
	CategoryID  pgtype.UUID    `json:"category_id"`
	Description pgtype.Text    `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
}

type ProductImage struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	ImageUrl     string    `json:"image_url"`
	DisplayOrder int32     `json:"display_order"`
}

type StoreSetting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}
