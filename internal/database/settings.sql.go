package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listStoreSettings = `-- name: ListStoreSettings :many
SELECT key, value FROM store_settings
ORDER BY key
`

func (q *Queries) ListStoreSettings(ctx context.Context) ([]StoreSetting, error) {
	rows, err := q.db.Query(ctx, listStoreSettings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []StoreSetting{}
	for rows.Next() {
		var i StoreSetting
		if err := rows.Scan(&i.Key, &i.Value); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertStoreSetting = `-- name: UpsertStoreSetting :exec
INSERT INTO store_settings (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
`

type UpsertStoreSettingParams struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (q *Queries) UpsertStoreSetting(ctx context.Context, arg UpsertStoreSettingParams) error {
	_, err := q.db.Exec(ctx, upsertStoreSetting, arg.Key, arg.Value)
	return err
}

const listDeliveryFees = `-- name: ListDeliveryFees :many
SELECT governorate, fee FROM delivery_fees
ORDER BY governorate
`

func (q *Queries) ListDeliveryFees(ctx context.Context) ([]DeliveryFee, error) {
	rows, err := q.db.Query(ctx, listDeliveryFees)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []DeliveryFee{}
	for rows.Next() {
		var i DeliveryFee
		if err := rows.Scan(&i.Governorate, &i.Fee); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertDeliveryFee = `-- name: UpsertDeliveryFee :exec
INSERT INTO delivery_fees (governorate, fee) VALUES ($1, $2)
ON CONFLICT (governorate) DO UPDATE SET fee = EXCLUDED.fee
`

type UpsertDeliveryFeeParams struct {
	Governorate string         `json:"governorate"`
	Fee         pgtype.Numeric `json:"fee"`
}

func (q *Queries) UpsertDeliveryFee(ctx context.Context, arg UpsertDeliveryFeeParams) error {
	_, err := q.db.Exec(ctx, upsertDeliveryFee, arg.Governorate, arg.Fee)
	return err
}
