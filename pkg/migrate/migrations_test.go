package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dagym/contract-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestContractsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_contracts")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS contracts",
		"CHECK (status IN ('draft', 'sent', 'signed', 'paid', 'completed'))",
		"CHECK (send_method IN ('email', 'sms', 'kakao'))",
		"FOREIGN KEY (created_by) REFERENCES users(id)",
		"DROP TABLE IF EXISTS contracts",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSignaturesMigrationIsOnePerContract(t *testing.T) {
	content := readMigration(t, "create_signatures")
	checks := []string{
		"CONSTRAINT signatures_contract_id_key UNIQUE (contract_id)",
		"FOREIGN KEY (contract_id) REFERENCES contracts(id) ON DELETE CASCADE",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Contract Notes!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_contract_notes.sql") {
		t.Fatalf("unexpected migration path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestEmbeddedSourceMatchesDisk(t *testing.T) {
	fsys, err := migrate.Source(migrate.DefaultDir)
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	if err := migrate.ValidateFS(fsys); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
	embedded, _ := fs.Glob(fsys, "*.sql")
	onDisk, _ := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if len(embedded) != len(onDisk) || len(embedded) == 0 {
		t.Fatalf("embedded %d files, disk has %d", len(embedded), len(onDisk))
	}
}

func TestValidateDirRejectsDownBeforeUp(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x (id int);\n"
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_x.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected section order error")
	}
}

func TestCreateSQLMigrationSameSecond(t *testing.T) {
	dir := t.TempDir()
	first, err := migrate.CreateSQLMigration(dir, "add plan notes")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := migrate.CreateSQLMigration(dir, "add plan notes")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct files, got %s twice", first)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migrations should validate: %v", err)
	}
}
