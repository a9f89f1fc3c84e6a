package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/pawmed/billing-service/internal/domain"
	"github.com/pawmed/billing-service/internal/repository"
	"github.com/pawmed/billing-service/pkg/logger"
)

// SqlxCatalogRepository implements repository.CatalogRepository over sqlx.
// The catalog is read-only from this service, so the plain scan-into-struct
// style fits; the transactional repositories stay on pgx.
type SqlxCatalogRepository struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewCatalogConnection opens the sqlx connection used by the catalog repository
func NewCatalogConnection(dsn string, log *logger.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		log.Errorw("Failed to connect to catalog database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	return db, nil
}

// NewSqlxCatalogRepository creates a new catalog repository
func NewSqlxCatalogRepository(db *sqlx.DB, log *logger.Logger) *SqlxCatalogRepository {
	return &SqlxCatalogRepository{
		db:  db,
		log: log,
	}
}

type planRow struct {
	ID           uuid.UUID `db:"id"`
	Name         string    `db:"name"`
	Price        int64     `db:"price"`
	Currency     string    `db:"currency"`
	Interval     string    `db:"interval"`
	MinuteGrant  int       `db:"minute_grant"`
	Active       bool      `db:"active"`
	Featured     bool      `db:"featured"`
	DisplayOrder int       `db:"display_order"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r planRow) toDomain() domain.Plan {
	return domain.Plan{
		ID:           r.ID,
		Name:         r.Name,
		Price:        r.Price,
		Currency:     r.Currency,
		Interval:     domain.PlanInterval(r.Interval),
		MinuteGrant:  r.MinuteGrant,
		Active:       r.Active,
		Featured:     r.Featured,
		DisplayOrder: r.DisplayOrder,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type minutePackageRow struct {
	ID        uuid.UUID `db:"id"`
	Minutes   int       `db:"minutes"`
	Price     int64     `db:"price"`
	Currency  string    `db:"currency"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r minutePackageRow) toDomain() domain.MinutePackage {
	return domain.MinutePackage{
		ID:        r.ID,
		Minutes:   r.Minutes,
		Price:     r.Price,
		Currency:  r.Currency,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

const planSelect = `SELECT id, name, price, currency, "interval", minute_grant, active,
		featured, display_order, created_at, updated_at FROM plans`

const packageSelect = `SELECT id, minutes, price, currency, active, created_at, updated_at
		FROM minute_packages`

// GetPlanByID returns a plan by its id
func (r *SqlxCatalogRepository) GetPlanByID(ctx context.Context, id uuid.UUID) (domain.Plan, error) {
	var row planRow
	err := r.db.GetContext(ctx, &row, planSelect+` WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Plan{}, repository.ErrNotFound
		}
		return domain.Plan{}, fmt.Errorf("failed to get plan: %w", err)
	}

	return row.toDomain(), nil
}

// GetPlanByName returns a plan by its display name
func (r *SqlxCatalogRepository) GetPlanByName(ctx context.Context, name string) (domain.Plan, error) {
	var row planRow
	err := r.db.GetContext(ctx, &row, planSelect+` WHERE name = $1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Plan{}, repository.ErrNotFound
		}
		return domain.Plan{}, fmt.Errorf("failed to get plan by name: %w", err)
	}

	return row.toDomain(), nil
}

// GetMinutePackageByID returns a minute package by its id
func (r *SqlxCatalogRepository) GetMinutePackageByID(ctx context.Context, id uuid.UUID) (domain.MinutePackage, error) {
	var row minutePackageRow
	err := r.db.GetContext(ctx, &row, packageSelect+` WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.MinutePackage{}, repository.ErrNotFound
		}
		return domain.MinutePackage{}, fmt.Errorf("failed to get minute package: %w", err)
	}

	return row.toDomain(), nil
}

// GetMinutePackageByMinutes returns the package granting exactly the given minutes
func (r *SqlxCatalogRepository) GetMinutePackageByMinutes(ctx context.Context, minutes int) (domain.MinutePackage, error) {
	var row minutePackageRow
	err := r.db.GetContext(ctx, &row, packageSelect+` WHERE minutes = $1`, minutes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.MinutePackage{}, repository.ErrNotFound
		}
		return domain.MinutePackage{}, fmt.Errorf("failed to get minute package by minutes: %w", err)
	}

	return row.toDomain(), nil
}

// ListActivePlans returns active plans in display order
func (r *SqlxCatalogRepository) ListActivePlans(ctx context.Context) ([]domain.Plan, error) {
	var rows []planRow
	err := r.db.SelectContext(ctx, &rows, planSelect+` WHERE active ORDER BY display_order ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	plans := make([]domain.Plan, 0, len(rows))
	for _, row := range rows {
		plans = append(plans, row.toDomain())
	}

	return plans, nil
}

// ListActiveMinutePackages returns active packages ordered by size
func (r *SqlxCatalogRepository) ListActiveMinutePackages(ctx context.Context) ([]domain.MinutePackage, error) {
	var rows []minutePackageRow
	err := r.db.SelectContext(ctx, &rows, packageSelect+` WHERE active ORDER BY minutes ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list minute packages: %w", err)
	}

	pkgs := make([]domain.MinutePackage, 0, len(rows))
	for _, row := range rows {
		pkgs = append(pkgs, row.toDomain())
	}

	return pkgs, nil
}
