// Package registry is the reference ComponentRegistry: the live table of
// components actually materialized on the downstream configuration
// subsystem, backed by SQLite. The ComponentAggregator writes to it through
// Put/Delete; the appmanager core only ever reads it through
// ports.ComponentRegistry.
package registry

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/ports"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Registry is the reference ports.ComponentRegistry.
type Registry struct {
	db *sqlx.DB
}

var _ ports.ComponentRegistry = (*Registry)(nil)

// Open opens (creating if necessary) the SQLite component database at dsn
// and runs pending migrations.
func Open(dsn string) (*Registry, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("registry: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: ping: %w", err)
	}
	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: migrate: %w", err)
	}
	return &Registry{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

type componentRow struct {
	ID         string `db:"id"`
	FactoryID  string `db:"factory_id"`
	Alias      string `db:"alias"`
	Properties string `db:"properties"`
}

func (r *Registry) GetComponent(ctx context.Context, id string) (ports.RegistryComponent, bool, error) {
	var row componentRow
	err := r.db.GetContext(ctx, &row, `SELECT id, factory_id, alias, properties FROM components WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.RegistryComponent{}, false, nil
	}
	if err != nil {
		return ports.RegistryComponent{}, false, fmt.Errorf("registry: get component %s: %w", id, err)
	}
	comp, err := decodeComponent(row)
	if err != nil {
		return ports.RegistryComponent{}, false, err
	}
	return comp, true, nil
}

func (r *Registry) GetComponentByConfig(ctx context.Context, factoryID string, properties domain.Properties) (ports.RegistryComponent, bool, error) {
	all, err := r.AllComponents(ctx)
	if err != nil {
		return ports.RegistryComponent{}, false, err
	}
	for _, comp := range all {
		if comp.FactoryID == factoryID && comp.Properties.Equal(properties) {
			return comp, true, nil
		}
	}
	return ports.RegistryComponent{}, false, nil
}

func (r *Registry) AllComponents(ctx context.Context) ([]ports.RegistryComponent, error) {
	var rows []componentRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, factory_id, alias, properties FROM components`); err != nil {
		return nil, fmt.Errorf("registry: list components: %w", err)
	}
	out := make([]ports.RegistryComponent, 0, len(rows))
	for _, row := range rows {
		comp, err := decodeComponent(row)
		if err != nil {
			return nil, err
		}
		out = append(out, comp)
	}
	return out, nil
}

// NextAvailableID returns the first "base{N}" (N >= startingDigit) not
// already used by a persisted component or listed in claimed.
func (r *Registry) NextAvailableID(ctx context.Context, base string, startingDigit int, claimed []string) (string, error) {
	existing, err := r.AllComponents(ctx)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(existing)+len(claimed))
	for _, comp := range existing {
		taken[comp.ID] = true
	}
	for _, id := range claimed {
		taken[id] = true
	}
	for n := startingDigit; ; n++ {
		candidate := base + strconv.Itoa(n)
		if !taken[candidate] {
			return candidate, nil
		}
	}
}

// Put inserts or updates one component row. Used by the ComponentAggregator
// when committing, never by the appmanager core directly.
func (r *Registry) Put(ctx context.Context, comp ports.RegistryComponent) error {
	props, err := json.Marshal(comp.Properties)
	if err != nil {
		return fmt.Errorf("registry: encode component %s: %w", comp.ID, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO components (id, factory_id, alias, properties, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			factory_id = excluded.factory_id,
			alias = excluded.alias,
			properties = excluded.properties,
			updated_at = datetime('now')
	`, comp.ID, comp.FactoryID, comp.Alias, string(props))
	if err != nil {
		return fmt.Errorf("registry: put component %s: %w", comp.ID, err)
	}
	return nil
}

// Delete removes one component row by ID.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM components WHERE id = ?`, id); err != nil {
		return fmt.Errorf("registry: delete component %s: %w", id, err)
	}
	return nil
}

// DeleteByPrefix removes every component whose ID starts with prefix.
func (r *Registry) DeleteByPrefix(ctx context.Context, prefix string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM components WHERE id LIKE ? || '%'`, prefix); err != nil {
		return fmt.Errorf("registry: delete components by prefix %s: %w", prefix, err)
	}
	return nil
}

func decodeComponent(row componentRow) (ports.RegistryComponent, error) {
	var props domain.Properties
	if err := json.Unmarshal([]byte(row.Properties), &props); err != nil {
		return ports.RegistryComponent{}, fmt.Errorf("registry: decode component %s: %w", row.ID, err)
	}
	return ports.RegistryComponent{
		ID:         row.ID,
		FactoryID:  row.FactoryID,
		Alias:      row.Alias,
		Properties: props,
	}, nil
}
