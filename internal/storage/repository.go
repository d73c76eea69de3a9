package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/chickenshout/craftwatch/internal/domain"
)

// Repository defines the interface for server and sample storage.
type Repository interface {
	// ListServers returns all registered servers in insertion order.
	ListServers(ctx context.Context) ([]domain.Server, error)

	// GetServer retrieves a server by name, or domain.ErrServerNotFound.
	GetServer(ctx context.Context, name string) (*domain.Server, error)

	// AddServer registers a new server. Duplicate names or addresses are
	// rejected with domain.ErrDuplicateName / domain.ErrDuplicateAddress
	// and leave the store unchanged.
	AddServer(ctx context.Context, name, address string) (*domain.Server, error)

	// RemoveServer deletes a server and, via cascade, all of its samples.
	// Returns false when no server had that name.
	RemoveServer(ctx context.Context, name string) (bool, error)

	// AppendSample records an observation for a server at the current time.
	AppendSample(ctx context.Context, serverID int64, onlineCount int) error

	// DeleteSamples purges a server's samples, keeping the registration.
	DeleteSamples(ctx context.Context, serverID int64) (int64, error)

	// DeleteSamplesOlderThan removes samples timestamped before horizon.
	DeleteSamplesOlderThan(ctx context.Context, horizon time.Time) (int64, error)

	// QuerySamples returns a server's samples since the given instant,
	// ordered by timestamp ascending.
	QuerySamples(ctx context.Context, name string, since time.Time) ([]domain.Sample, error)

	// QueryAggregate computes peak, average and distinct-day count over a
	// server's samples since the given instant. Peak and Average are nil
	// when the window is empty.
	QueryAggregate(ctx context.Context, name string, since time.Time) (domain.AggregateReport, error)

	// RecentSamples returns up to limit online counts for a server,
	// most recent first.
	RecentSamples(ctx context.Context, name string, limit int) ([]int, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var _ Repository = (*PostgresRepository)(nil)

func (r *PostgresRepository) ListServers(ctx context.Context) ([]domain.Server, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, address FROM servers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	defer rows.Close()

	var servers []domain.Server
	for rows.Next() {
		var s domain.Server
		if err := rows.Scan(&s.ID, &s.Name, &s.Address); err != nil {
			return nil, fmt.Errorf("scan server: %w", err)
		}
		servers = append(servers, s)
	}
	return servers, rows.Err()
}

func (r *PostgresRepository) GetServer(ctx context.Context, name string) (*domain.Server, error) {
	var s domain.Server
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, address FROM servers WHERE name = $1`, name,
	).Scan(&s.ID, &s.Name, &s.Address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrServerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get server: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) AddServer(ctx context.Context, name, address string) (*domain.Server, error) {
	var s domain.Server
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO servers (name, address) VALUES ($1, $2)
		RETURNING id, name, address
	`, name, address).Scan(&s.ID, &s.Name, &s.Address)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// unique_violation: which constraint tells us which field collided
			if pqErr.Constraint == "servers_address_key" {
				return nil, domain.ErrDuplicateAddress
			}
			return nil, domain.ErrDuplicateName
		}
		return nil, fmt.Errorf("add server: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) RemoveServer(ctx context.Context, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM servers WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("remove server: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove server rows: %w", err)
	}
	return rows > 0, nil
}

func (r *PostgresRepository) AppendSample(ctx context.Context, serverID int64, onlineCount int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO samples (server_id, online_count) VALUES ($1, $2)`,
		serverID, onlineCount,
	)
	if err != nil {
		return fmt.Errorf("append sample: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteSamples(ctx context.Context, serverID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM samples WHERE server_id = $1`, serverID)
	if err != nil {
		return 0, fmt.Errorf("delete samples: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) DeleteSamplesOlderThan(ctx context.Context, horizon time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM samples WHERE timestamp < $1`, horizon)
	if err != nil {
		return 0, fmt.Errorf("delete old samples: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) QuerySamples(ctx context.Context, name string, since time.Time) ([]domain.Sample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT samples.id, samples.server_id, samples.online_count, samples.timestamp
		FROM samples
		JOIN servers ON servers.id = samples.server_id
		WHERE servers.name = $1 AND samples.timestamp > $2
		ORDER BY samples.timestamp
	`, name, since)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []domain.Sample
	for rows.Next() {
		var s domain.Sample
		if err := rows.Scan(&s.ID, &s.ServerID, &s.OnlineCount, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func (r *PostgresRepository) QueryAggregate(ctx context.Context, name string, since time.Time) (domain.AggregateReport, error) {
	var (
		peak sql.NullInt64
		avg  sql.NullFloat64
		days int
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT
			MAX(samples.online_count),
			AVG(samples.online_count),
			COUNT(DISTINCT DATE(samples.timestamp))
		FROM samples
		JOIN servers ON servers.id = samples.server_id
		WHERE servers.name = $1 AND samples.timestamp > $2
	`, name, since).Scan(&peak, &avg, &days)
	if err != nil {
		return domain.AggregateReport{}, fmt.Errorf("query aggregate: %w", err)
	}

	rep := domain.AggregateReport{ActiveDays: days}
	if peak.Valid {
		p := int(peak.Int64)
		rep.Peak = &p
	}
	if avg.Valid {
		a := avg.Float64
		rep.Average = &a
	}
	return rep, nil
}

func (r *PostgresRepository) RecentSamples(ctx context.Context, name string, limit int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT samples.online_count
		FROM samples
		JOIN servers ON servers.id = samples.server_id
		WHERE servers.name = $1
		ORDER BY samples.timestamp DESC
		LIMIT $2
	`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("recent samples: %w", err)
	}
	defer rows.Close()

	var counts []int
	for rows.Next() {
		var c int
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan recent sample: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
