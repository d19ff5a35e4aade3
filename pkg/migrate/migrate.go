package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where the migration files live in the repository. Binaries read the copy embedded
// at build time, so they do not depend on the working directory.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source resolves dir to the migration files: the embedded set for DefaultDir or "", the
// directory on disk for anything else.
func Source(dir string) (fs.FS, error) {
	if dir == "" || filepath.Clean(dir) == DefaultDir {
		return fs.Sub(embedded, "migrations")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("migrations dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations dir %q is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// Status is one line of `migrate -cmd=status`.
type Status struct {
	Version   int64
	File      string
	Applied   bool
	AppliedAt time.Time
}

// Runner applies goose migrations against postgres.
type Runner struct {
	provider *goose.Provider
}

func NewRunner(db *sql.DB, dir string) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	fsys, err := Source(dir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Up applies every pending migration and returns the files it ran.
func (r *Runner) Up(ctx context.Context) ([]string, error) {
	results, err := r.provider.Up(ctx)
	files := make([]string, 0, len(results))
	for _, res := range results {
		files = append(files, filepath.Base(res.Source.Path))
	}
	if err != nil {
		return files, fmt.Errorf("goose up: %w", err)
	}
	return files, nil
}

// Down rolls back the newest applied migration.
func (r *Runner) Down(ctx context.Context) (string, error) {
	res, err := r.provider.Down(ctx)
	if err != nil {
		return "", fmt.Errorf("goose down: %w", err)
	}
	return filepath.Base(res.Source.Path), nil
}

func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	rows, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]Status, 0, len(rows))
	for _, row := range rows {
		out = append(out, Status{
			Version:   row.Source.Version,
			File:      filepath.Base(row.Source.Path),
			Applied:   row.State == goose.StateApplied,
			AppliedAt: row.AppliedAt,
		})
	}
	return out, nil
}

// To moves the schema up or down until version is the newest applied migration.
func (r *Runner) To(ctx context.Context, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", version, err)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("current version: %w", err)
	}
	switch {
	case target > current:
		_, err = r.provider.UpTo(ctx, target)
	case target < current:
		_, err = r.provider.DownTo(ctx, target)
	}
	if err != nil {
		return fmt.Errorf("migrate to %d: %w", target, err)
	}
	return nil
}

// Close releases the provider. The *sql.DB stays open.
func (r *Runner) Close() error {
	return r.provider.Close()
}
