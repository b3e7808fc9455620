package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudaline/dispatch-service/internal/domain"
	"github.com/kudaline/dispatch-service/internal/geo"
)

// candidateLimit caps the candidate set so the in-process ranking
// stays bounded regardless of fleet size.
const candidateLimit = 100

type RiderRepository struct {
	pool *pgxpool.Pool
}

func NewRiderRepository(p *pgxpool.Pool) *RiderRepository {
	return &RiderRepository{pool: p}
}

func (r *RiderRepository) Candidates(ctx context.Context, exclude []uuid.UUID, box *geo.BoundingBox) ([]domain.RiderCandidate, error) {
	if exclude == nil {
		exclude = []uuid.UUID{}
	}

	query := `
SELECT r.user_id, r.current_lat, r.current_lon,
       (SELECT count(*) FROM orders o
         WHERE o.rider_id = r.user_id AND o.rider_assigned
           AND NOT EXISTS (SELECT 1 FROM order_tracking t
                            WHERE t.order_id = o.id AND t.status IN ('DELIVERED', 'CANCELLED'))) AS active_orders
FROM riders r
WHERE r.approval_status = 'APPROVED'
  AND r.active
  AND r.current_lat IS NOT NULL
  AND r.current_lon IS NOT NULL
  AND NOT (r.user_id = ANY($1))`
	args := []any{exclude}

	if box != nil {
		query += `
  AND r.current_lat BETWEEN $2 AND $3
  AND r.current_lon BETWEEN $4 AND $5`
		args = append(args, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	}
	query += fmt.Sprintf("\nORDER BY r.updated_at DESC\nLIMIT %d", candidateLimit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rider candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.RiderCandidate
	for rows.Next() {
		var c domain.RiderCandidate
		if err := rows.Scan(&c.RiderID, &c.Lat, &c.Lon, &c.ActiveOrders); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
