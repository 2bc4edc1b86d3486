package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type PostgresJournal struct {
	db *sql.DB
}

func NewPostgresJournal(cred *Credentials) (*PostgresJournal, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &PostgresJournal{db: db}, nil
}

func (j *PostgresJournal) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(j.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (j *PostgresJournal) RecordTransition(ctx context.Context, e Entry) error {
	const q = `
		INSERT INTO checkout_attempts (attempt_id, session_id, reference, status, amount, detail, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := j.db.ExecContext(ctx, q,
		e.AttemptID, e.SessionID, e.Reference, e.Status.String(), e.Amount, e.Detail, e.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

func (j *PostgresJournal) RecentAttempts(ctx context.Context, limit int) ([]Entry, error) {
	const q = `
		SELECT attempt_id, session_id, reference, status, amount, detail, recorded_at
		FROM checkout_attempts
		ORDER BY recorded_at DESC
		LIMIT $1`

	rows, err := j.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var status string
		if err := rows.Scan(&e.AttemptID, &e.SessionID, &e.Reference, &status, &e.Amount, &e.Detail, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		e.Status = domain.CheckoutStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *PostgresJournal) Close() error {
	return j.db.Close()
}
