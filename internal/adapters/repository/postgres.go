package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/guestrank/internal/domain/model"
	"github.com/okian/guestrank/pkg/logger"
)

// PostgresStore persists guests, events and scores in Postgres.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// OpenPostgres connects to url, pings the server and applies migrations.
func OpenPostgres(ctx context.Context, url string, opts ...PostgresOption) (*PostgresStore, error) {
	o := postgresOptions{maxConns: 10, migrate: true, logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = o.maxConns
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if o.migrate {
		applied, err := Migrate(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		o.logger.Info(ctx, "database migrated", logger.Int("applied", len(applied)))
	}

	return &PostgresStore{pool: pool, logger: o.logger}, nil
}

// NewPostgresStore wraps an existing pool. The schema must already exist.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger.Nop()}
}

// GetMetadata implements MetadataStore.
func (s *PostgresStore) GetMetadata(ctx context.Context, guestID string) (meta model.ScoreMetadata, found bool, err error) {
	defer observe("get_metadata", time.Now(), &err)

	var raw []byte
	err = s.pool.QueryRow(ctx, `
		SELECT guest_id, score, data_hash, calculated_at, breakdown
		FROM guest_importance
		WHERE guest_id = $1
	`, guestID).Scan(&meta.GuestID, &meta.Score, &meta.DataHash, &meta.CalculatedAt, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ScoreMetadata{}, false, nil
	}
	if err != nil {
		return model.ScoreMetadata{}, false, fmt.Errorf("select metadata: %w", err)
	}
	if len(raw) > 0 {
		if err = json.Unmarshal(raw, &meta.Breakdown); err != nil {
			return model.ScoreMetadata{}, false, fmt.Errorf("decode breakdown: %w", err)
		}
	}
	return meta, true, nil
}

// PutMetadata implements MetadataStore with a single upsert statement.
func (s *PostgresStore) PutMetadata(ctx context.Context, meta model.ScoreMetadata) (err error) {
	defer observe("put_metadata", time.Now(), &err)
	if strings.TrimSpace(meta.GuestID) == "" {
		return fmt.Errorf("%w: metadata without guest id", ErrInvalidRecord)
	}

	var raw []byte
	if meta.Breakdown != nil {
		if raw, err = json.Marshal(meta.Breakdown); err != nil {
			return fmt.Errorf("encode breakdown: %w", err)
		}
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO guest_importance (guest_id, score, data_hash, calculated_at, breakdown)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guest_id) DO UPDATE SET
			score = EXCLUDED.score,
			data_hash = EXCLUDED.data_hash,
			calculated_at = EXCLUDED.calculated_at,
			breakdown = EXCLUDED.breakdown
	`, meta.GuestID, meta.Score, meta.DataHash, meta.CalculatedAt, raw)
	if err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}
	return nil
}

const guestColumns = `id, organization_id, first_name, last_name, email, company, job_title, notes, phone, address`

func scanGuest(row pgx.Row) (model.Guest, error) {
	var g model.Guest
	err := row.Scan(&g.ID, &g.OrganizationID, &g.FirstName, &g.LastName, &g.Email,
		&g.Company, &g.JobTitle, &g.Notes, &g.Phone, &g.Address)
	return g, err
}

// GetGuest implements GuestStore.
func (s *PostgresStore) GetGuest(ctx context.Context, guestID string) (g model.Guest, err error) {
	defer observe("get_guest", time.Now(), &err)
	g, err = scanGuest(s.pool.QueryRow(ctx, `SELECT `+guestColumns+` FROM guests WHERE id = $1`, guestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Guest{}, ErrNotFound
	}
	if err != nil {
		return model.Guest{}, fmt.Errorf("select guest: %w", err)
	}
	return g, nil
}

// GetEvent implements GuestStore.
func (s *PostgresStore) GetEvent(ctx context.Context, eventID string) (e model.Event, err error) {
	defer observe("get_event", time.Now(), &err)
	err = s.pool.QueryRow(ctx, `
		SELECT id, organization_id, name, description, industry
		FROM events
		WHERE id = $1
	`, eventID).Scan(&e.ID, &e.OrganizationID, &e.Name, &e.Description, &e.Industry)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("select event: %w", err)
	}
	return e, nil
}

// ListGuests implements GuestStore.
func (s *PostgresStore) ListGuests(ctx context.Context, organizationID string) (out []model.Guest, err error) {
	defer observe("list_guests", time.Now(), &err)
	rows, err := s.pool.Query(ctx, `SELECT `+guestColumns+` FROM guests WHERE organization_id = $1 ORDER BY id`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	defer rows.Close()

	out = make([]model.Guest, 0)
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guest: %w", err)
		}
		out = append(out, g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	return out, nil
}

// UpsertGuest implements GuestStore.
func (s *PostgresStore) UpsertGuest(ctx context.Context, g model.Guest) (err error) {
	defer observe("upsert_guest", time.Now(), &err)
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("%w: guest without id", ErrInvalidRecord)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO guests (`+guestColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			company = EXCLUDED.company,
			job_title = EXCLUDED.job_title,
			notes = EXCLUDED.notes,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			updated_at = now()
	`, g.ID, g.OrganizationID, g.FirstName, g.LastName, g.Email, g.Company, g.JobTitle, g.Notes, g.Phone, g.Address)
	if err != nil {
		return fmt.Errorf("upsert guest: %w", err)
	}
	return nil
}

// UpsertEvent implements GuestStore.
func (s *PostgresStore) UpsertEvent(ctx context.Context, e model.Event) (err error) {
	defer observe("upsert_event", time.Now(), &err)
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: event without id", ErrInvalidRecord)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO events (id, organization_id, name, description, industry, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			industry = EXCLUDED.industry,
			updated_at = now()
	`, e.ID, e.OrganizationID, e.Name, e.Description, e.Industry)
	if err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	return nil
}

// Stats implements Store.
func (s *PostgresStore) Stats(ctx context.Context) (st Stats, err error) {
	defer observe("stats", time.Now(), &err)
	err = s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM guests),
			(SELECT count(*) FROM events),
			(SELECT count(*) FROM guest_importance WHERE score IS NOT NULL)
	`).Scan(&st.Guests, &st.Events, &st.Scored)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}
