package appcatalog

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/ports"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the reference ports.AppStore: an in-memory, YAML-loaded app
// catalog plus a SQLite-backed table of installed AppInstance rows.
type Store struct {
	db   *sqlx.DB
	apps map[string]domain.App
}

var _ ports.AppStore = (*Store)(nil)

// Open opens (creating if necessary) the SQLite instance database at dsn,
// runs pending migrations, and returns a Store seeded with the given
// catalog definitions.
func Open(dsn string, defs []AppDefinition) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, &StoreError{Op: "open", Err: fmt.Errorf("%w: %v", ErrConnectionFailed, err)}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StoreError{Op: "ping", Err: fmt.Errorf("%w: %v", ErrConnectionFailed, err)}
	}
	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, &StoreError{Op: "migrate", Err: fmt.Errorf("%w: %v", ErrMigrationFailed, err)}
	}

	apps := make(map[string]domain.App, len(defs))
	for _, def := range defs {
		apps[def.AppID] = NewApp(def)
	}

	return &Store{db: db, apps: apps}, nil
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
func (s *Store) Close() error {
	return s.db.Close()
}

// GetAppByID returns the catalog app for appID.
func (s *Store) GetAppByID(_ context.Context, appID string) (domain.App, error) {
	app, ok := s.apps[appID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAppNotFound, appID)
	}
	return app, nil
}

type instanceRow struct {
	InstanceID   string `db:"instance_id"`
	AppID        string `db:"app_id"`
	Alias        string `db:"alias"`
	Properties   string `db:"properties"`
	Dependencies string `db:"dependencies"`
}

func (s *Store) GetInstanceByID(ctx context.Context, id uuid.UUID) (domain.AppInstance, bool, error) {
	var row instanceRow
	err := s.db.GetContext(ctx, &row, `SELECT instance_id, app_id, alias, properties, dependencies FROM app_instances WHERE instance_id = ?`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AppInstance{}, false, nil
	}
	if err != nil {
		return domain.AppInstance{}, false, &StoreError{Op: "get instance", ID: id.String(), Err: err}
	}
	instance, err := decodeInstance(row)
	if err != nil {
		return domain.AppInstance{}, false, err
	}
	return instance, true, nil
}

// GetAppsWithDependencyTo returns every stored instance whose Dependencies
// list references instanceID.
func (s *Store) GetAppsWithDependencyTo(ctx context.Context, instanceID uuid.UUID) ([]domain.AppInstance, error) {
	all, err := s.AllInstances(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.AppInstance
	for _, instance := range all {
		for _, dep := range instance.Dependencies {
			if dep.InstanceID == instanceID {
				out = append(out, instance)
				break
			}
		}
	}
	return out, nil
}

func (s *Store) AllInstances(ctx context.Context) ([]domain.AppInstance, error) {
	var rows []instanceRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT instance_id, app_id, alias, properties, dependencies FROM app_instances`); err != nil {
		return nil, &StoreError{Op: "list instances", Err: err}
	}
	out := make([]domain.AppInstance, 0, len(rows))
	for _, row := range rows {
		instance, err := decodeInstance(row)
		if err != nil {
			return nil, err
		}
		out = append(out, instance)
	}
	return out, nil
}

func (s *Store) SaveInstance(ctx context.Context, instance domain.AppInstance) error {
	row, err := encodeInstance(instance)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO app_instances (instance_id, app_id, alias, properties, dependencies, updated_at)
		VALUES (:instance_id, :app_id, :alias, :properties, :dependencies, datetime('now'))
		ON CONFLICT(instance_id) DO UPDATE SET
			app_id = excluded.app_id,
			alias = excluded.alias,
			properties = excluded.properties,
			dependencies = excluded.dependencies,
			updated_at = datetime('now')
	`, row)
	if err != nil {
		return &StoreError{Op: "save instance", ID: instance.InstanceID.String(), Err: err}
	}
	return nil
}

func (s *Store) DeleteInstance(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_instances WHERE instance_id = ?`, id.String()); err != nil {
		return &StoreError{Op: "delete instance", ID: id.String(), Err: err}
	}
	return nil
}

func encodeInstance(instance domain.AppInstance) (instanceRow, error) {
	props, err := json.Marshal(instance.Properties)
	if err != nil {
		return instanceRow{}, &StoreError{Op: "encode instance", ID: instance.InstanceID.String(), Err: fmt.Errorf("%w: %v", ErrInvalidData, err)}
	}
	deps, err := json.Marshal(instance.Dependencies)
	if err != nil {
		return instanceRow{}, &StoreError{Op: "encode instance", ID: instance.InstanceID.String(), Err: fmt.Errorf("%w: %v", ErrInvalidData, err)}
	}
	return instanceRow{
		InstanceID:   instance.InstanceID.String(),
		AppID:        instance.AppID,
		Alias:        instance.Alias,
		Properties:   string(props),
		Dependencies: string(deps),
	}, nil
}

func decodeInstance(row instanceRow) (domain.AppInstance, error) {
	id, err := uuid.Parse(row.InstanceID)
	if err != nil {
		return domain.AppInstance{}, &StoreError{Op: "decode instance", ID: row.InstanceID, Err: fmt.Errorf("%w: %v", ErrInvalidData, err)}
	}
	var props domain.Properties
	if err := json.Unmarshal([]byte(row.Properties), &props); err != nil {
		return domain.AppInstance{}, &StoreError{Op: "decode instance", ID: row.InstanceID, Err: fmt.Errorf("%w: %v", ErrInvalidData, err)}
	}
	var deps []domain.Dependency
	if err := json.Unmarshal([]byte(row.Dependencies), &deps); err != nil {
		return domain.AppInstance{}, &StoreError{Op: "decode instance", ID: row.InstanceID, Err: fmt.Errorf("%w: %v", ErrInvalidData, err)}
	}
	return domain.AppInstance{
		InstanceID:   id,
		AppID:        row.AppID,
		Alias:        row.Alias,
		Properties:   props,
		Dependencies: deps,
	}, nil
}
