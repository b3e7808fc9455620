package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudaline/dispatch-service/internal/domain"
)

const pgUniqueViolation = "23505"

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(p *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: p}
}

const orderColumns = `o.id, o.payer_id, o.pickup_lat, o.pickup_lon,
	o.sender_name, o.sender_phone, o.recipient_name, o.recipient_phone, o.vehicle_class,
	o.delivery_fee_cents, o.service_charge_cents, o.total_cents,
	o.rider_id, o.rider_assigned, o.assigned_at, o.has_rewarded_rider, o.created_at,
	COALESCE((SELECT array_agg(d.rider_id) FROM order_declines d WHERE d.order_id = o.id), '{}')`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(
		&o.ID, &o.PayerID, &o.PickupLat, &o.PickupLon,
		&o.SenderName, &o.SenderPhone, &o.RecipientName, &o.RecipientPhone, &o.VehicleClass,
		&o.DeliveryFeeCents, &o.ServiceChargeCents, &o.TotalCents,
		&o.RiderID, &o.RiderAssigned, &o.AssignedAt, &o.HasRewardedRider, &o.CreatedAt,
		&o.DeclinedRiderIDs,
	); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) CreateOrder(ctx context.Context, o *domain.Order, dests []domain.DeliveryDestination) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin create order tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Conditional debit: the balance check and the write are one
	// statement, so a concurrent spend cannot slip between them.
	ct, err := tx.Exec(ctx,
		`UPDATE wallets SET balance_cents = balance_cents - $2 WHERE owner_id = $1 AND balance_cents >= $2`,
		o.PayerID, o.TotalCents,
	)
	if err != nil {
		return fmt.Errorf("debit payer wallet: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: order total %d", domain.ErrInsufficientFunds, o.TotalCents)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO orders
			(id, payer_id, pickup_lat, pickup_lon,
			 sender_name, sender_phone, recipient_name, recipient_phone, vehicle_class,
			 delivery_fee_cents, service_charge_cents, total_cents)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at`,
		o.ID, o.PayerID, o.PickupLat, o.PickupLon,
		o.SenderName, o.SenderPhone, o.RecipientName, o.RecipientPhone, o.VehicleClass,
		o.DeliveryFeeCents, o.ServiceChargeCents, o.TotalCents,
	).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if _, err = tx.Exec(ctx,
		`INSERT INTO wallet_transactions (wallet_owner, order_id, amount_cents, kind)
		 VALUES ($1, $2, $3, 'order_payment')`,
		o.PayerID, o.ID, -o.TotalCents,
	); err != nil {
		return fmt.Errorf("record payment movement: %w", err)
	}

	if _, err = tx.Exec(ctx,
		`INSERT INTO order_tracking (order_id, status, note) VALUES ($1, $2, 'order placed')`,
		o.ID, domain.StatusPending,
	); err != nil {
		return fmt.Errorf("insert initial tracking: %w", err)
	}

	if len(dests) > 0 {
		batch := &pgx.Batch{}
		for _, d := range dests {
			batch.Queue(
				`INSERT INTO order_destinations
					(order_id, lat, lon, recipient_name, recipient_phone, distance_km, duration, fee_cents)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				o.ID, d.Lat, d.Lon, d.RecipientName, d.RecipientPhone, d.DistanceKm, d.Duration, d.FeeCents,
			)
		}
		br := tx.SendBatch(ctx, batch)
		if err = br.Close(); err != nil {
			return fmt.Errorf("insert destinations: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}
	tx = nil
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) CurrentStatus(ctx context.Context, orderID uuid.UUID) (domain.TrackingStatus, bool, error) {
	var s string
	err := r.pool.QueryRow(ctx,
		`SELECT status FROM order_tracking WHERE order_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		orderID,
	).Scan(&s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return domain.TrackingStatus(s), true, nil
}

func (r *OrderRepository) AppendTracking(ctx context.Context, orderID uuid.UUID, status domain.TrackingStatus, note string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO order_tracking (order_id, status, note) VALUES ($1, $2, $3)`,
		orderID, status, note,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateStatus, status)
		}
		return fmt.Errorf("append tracking: %w", err)
	}
	return nil
}

func (r *OrderRepository) DeliverAndReward(ctx context.Context, orderID, riderID uuid.UUID, amountCents int64, note string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin reward tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx,
		`INSERT INTO order_tracking (order_id, status, note) VALUES ($1, $2, $3)`,
		orderID, domain.StatusDelivered, note,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateStatus, domain.StatusDelivered)
		}
		return fmt.Errorf("insert delivered tracking: %w", err)
	}

	// Write-once reward flag; a second attempt finds no row to flip.
	ct, err := tx.Exec(ctx,
		`UPDATE orders SET has_rewarded_rider = true
		 WHERE id = $1 AND rider_id = $2 AND rider_assigned AND NOT has_rewarded_rider`,
		orderID, riderID,
	)
	if err != nil {
		return fmt.Errorf("flip reward flag: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s", domain.ErrAlreadyRewarded, orderID)
	}

	if _, err = tx.Exec(ctx,
		`INSERT INTO wallets (owner_id, balance_cents) VALUES ($1, $2)
		 ON CONFLICT (owner_id) DO UPDATE SET balance_cents = wallets.balance_cents + EXCLUDED.balance_cents`,
		riderID, amountCents,
	); err != nil {
		return fmt.Errorf("credit rider wallet: %w", err)
	}

	if _, err = tx.Exec(ctx,
		`INSERT INTO wallet_transactions (wallet_owner, order_id, amount_cents, kind)
		 VALUES ($1, $2, $3, 'delivery_reward')`,
		riderID, orderID, amountCents,
	); err != nil {
		return fmt.Errorf("record reward movement: %w", err)
	}

	if _, err = tx.Exec(ctx,
		`UPDATE order_destinations SET delivered = true, delivered_at = now()
		 WHERE order_id = $1 AND NOT delivered`,
		orderID,
	); err != nil {
		return fmt.Errorf("mark destinations delivered: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reward: %w", err)
	}
	tx = nil
	return nil
}

func (r *OrderRepository) AssignRider(ctx context.Context, orderID, riderID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET rider_id = $2, rider_assigned = true, assigned_at = now() WHERE id = $1`,
		orderID, riderID,
	)
	if err != nil {
		return fmt.Errorf("assign rider: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
	}
	return nil
}

func (r *OrderRepository) Decline(ctx context.Context, orderID, riderID uuid.UUID) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin decline tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ct, err := tx.Exec(ctx,
		`UPDATE orders SET rider_id = NULL, rider_assigned = false, assigned_at = NULL WHERE id = $1`,
		orderID,
	)
	if err != nil {
		return fmt.Errorf("clear assignment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
	}

	if _, err = tx.Exec(ctx,
		`INSERT INTO order_declines (order_id, rider_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		orderID, riderID,
	); err != nil {
		return fmt.Errorf("record decline: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit decline: %w", err)
	}
	tx = nil
	return nil
}

// nonTerminal filters to orders whose derived current status is
// neither DELIVERED nor CANCELLED. Terminal states accept no further
// transitions, so a terminal row exists exactly when the current
// status is terminal.
const nonTerminal = `NOT EXISTS (SELECT 1 FROM order_tracking t
	WHERE t.order_id = o.id AND t.status IN ('DELIVERED', 'CANCELLED'))`

func (r *OrderRepository) listOrders(ctx context.Context, where string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE `+where+` ORDER BY o.created_at ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *OrderRepository) ListUnassigned(ctx context.Context) ([]domain.Order, error) {
	return r.listOrders(ctx, `NOT o.rider_assigned AND `+nonTerminal)
}

func (r *OrderRepository) ActiveOrdersForRider(ctx context.Context, riderID uuid.UUID) ([]domain.Order, error) {
	return r.listOrders(ctx, `o.rider_id = $1 AND o.rider_assigned AND `+nonTerminal, riderID)
}

func (r *OrderRepository) AssignedOrdersForRider(ctx context.Context, riderID uuid.UUID) ([]domain.Order, error) {
	return r.listOrders(ctx, `o.rider_id = $1 AND o.rider_assigned`, riderID)
}

func (r *OrderRepository) Tracking(ctx context.Context, orderID uuid.UUID) ([]domain.OrderTracking, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, status, note, created_at FROM order_tracking
		 WHERE order_id = $1 ORDER BY created_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OrderTracking
	for rows.Next() {
		var t domain.OrderTracking
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Status, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *OrderRepository) Destinations(ctx context.Context, orderID uuid.UUID) ([]domain.DeliveryDestination, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, lat, lon, recipient_name, recipient_phone, distance_km, duration, fee_cents, delivered, delivered_at
		 FROM order_destinations WHERE order_id = $1 ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DeliveryDestination
	for rows.Next() {
		var d domain.DeliveryDestination
		if err := rows.Scan(&d.ID, &d.OrderID, &d.Lat, &d.Lon, &d.RecipientName, &d.RecipientPhone,
			&d.DistanceKm, &d.Duration, &d.FeeCents, &d.Delivered, &d.DeliveredAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
