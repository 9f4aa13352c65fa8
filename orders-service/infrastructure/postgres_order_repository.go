package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/models"
	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var _ domain.OrderRepository = (*PostgresOrderRepository)(nil)

// PostgresOrderRepository stores the order projection
type PostgresOrderRepository struct {
	db *sqlx.DB
}

// NewPostgresOrderRepository creates a new PostgresOrderRepository
func NewPostgresOrderRepository(db *sqlx.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// postgresOrder represents an order row
type postgresOrder struct {
	ID          string          `db:"id"`
	CustomerRef string          `db:"customer_ref"`
	Items       []byte          `db:"items"`
	TotalAmount decimal.Decimal `db:"total_amount"`
	Currency    string          `db:"currency"`
	Status      string          `db:"status"`
	Stage       string          `db:"stage"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

const orderColumns = `id, customer_ref, items, total_amount, currency, status, stage, created_at, updated_at`

// Save upserts the order. Only status, stage and updated_at change after creation.
func (r *PostgresOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	row, err := r.toPostgres(order)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (
			:id, :customer_ref, :items, :total_amount, :currency,
			:status, :stage, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, stage = EXCLUDED.stage, updated_at = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return errors.Wrap(err, "failed to save order")
	}
	return nil
}

// FindByID finds an order by ID
func (r *PostgresOrderRepository) FindByID(ctx context.Context, id models.ID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var row postgresOrder
	if err := r.db.GetContext(ctx, &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find order")
	}
	return r.toDomain(&row)
}

// List returns orders oldest first
func (r *PostgresOrderRepository) List(ctx context.Context, query domain.OrderQuery) ([]*domain.Order, error) {
	stmt := `SELECT ` + orderColumns + ` FROM orders WHERE ($1 = '' OR status = $1) ORDER BY created_at ASC LIMIT NULLIF($2, 0)`

	var rows []postgresOrder
	if err := r.db.SelectContext(ctx, &rows, stmt, string(query.Status), query.Limit); err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}

	result := make([]*domain.Order, len(rows))
	for i := range rows {
		order, err := r.toDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		result[i] = order
	}
	return result, nil
}

func (r *PostgresOrderRepository) toPostgres(order *domain.Order) (*postgresOrder, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal order items")
	}

	return &postgresOrder{
		ID:          order.ID.String(),
		CustomerRef: order.CustomerRef,
		Items:       items,
		TotalAmount: order.TotalAmount.Amount,
		Currency:    order.TotalAmount.Currency,
		Status:      string(order.Status),
		Stage:       string(order.Stage),
		CreatedAt:   order.Timestamps.CreatedAt.UTC(),
		UpdatedAt:   order.Timestamps.UpdatedAt.UTC(),
	}, nil
}

func (r *PostgresOrderRepository) toDomain(row *postgresOrder) (*domain.Order, error) {
	id, err := models.NewID(row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	var items []domain.Item
	if err := json.Unmarshal(row.Items, &items); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal order items")
	}

	return &domain.Order{
		ID:          id,
		CustomerRef: row.CustomerRef,
		Items:       items,
		TotalAmount: models.NewMoney(row.TotalAmount, row.Currency),
		Status:      domain.OrderStatus(row.Status),
		Stage:       domain.Stage(row.Stage),
		Timestamps: models.Timestamps{
			CreatedAt: row.CreatedAt.UTC(),
			UpdatedAt: row.UpdatedAt.UTC(),
		},
	}, nil
}
