package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dagym/contract-backend/internal/auth"
	"github.com/dagym/contract-backend/pkg/config"
	"github.com/dagym/contract-backend/pkg/db"
	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/migrate"
	"github.com/dagym/contract-backend/pkg/security"
)

type options struct {
	dir        string
	name       string
	version    string
	adminEmail string
	adminName  string
}

type session struct {
	cfg    *config.Config
	opts   options
	out    io.Writer
	client *db.Client
	runner *migrate.Runner
}

type command struct {
	needsDB bool
	run     func(ctx context.Context, s *session) error
}

var commands = map[string]command{
	"create":     {run: create},
	"validate":   {run: validate},
	"up":         {needsDB: true, run: up},
	"down":       {needsDB: true, run: down},
	"status":     {needsDB: true, run: status},
	"version":    {needsDB: true, run: toVersion},
	"seed-admin": {needsDB: true, run: seedAdmin},
}

func main() {
	_ = godotenv.Load()

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var opts options
	cmd := flag.String("cmd", "up", "migration command: "+strings.Join(names, "|"))
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (create)")
	flag.StringVar(&opts.version, "version", "", "target version YYYYMMDDHHMMSS (version)")
	flag.StringVar(&opts.adminEmail, "email", "", "operator email (seed-admin)")
	flag.StringVar(&opts.adminName, "operator-name", "", "operator display name (seed-admin)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd, "dir": opts.dir})

	if err := run(ctx, *cmd, cfg, opts, logg); err != nil {
		logg.Error(ctx, "migrate failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, name string, cfg *config.Config, opts options, logg *logger.Logger) error {
	c, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown -cmd value %q", name)
	}
	s := &session{cfg: cfg, opts: opts, out: os.Stdout}

	if c.needsDB {
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer client.Close()
		sqlDB, err := client.DB().DB()
		if err != nil {
			return fmt.Errorf("sql database: %w", err)
		}
		runner, err := migrate.NewRunner(sqlDB, opts.dir)
		if err != nil {
			return fmt.Errorf("goose provider: %w", err)
		}
		defer runner.Close()
		s.client, s.runner = client, runner
	}

	logg.Info(ctx, "migrate ready")
	return c.run(ctx, s)
}

func create(_ context.Context, s *session) error {
	if s.opts.name == "" {
		return errors.New("create needs -name")
	}
	path, err := migrate.CreateSQLMigration(s.opts.dir, s.opts.name)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, "created migration:", path)
	return nil
}

func validate(_ context.Context, s *session) error {
	if err := migrate.ValidateDir(s.opts.dir); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "migration validation passed")
	return nil
}

func up(ctx context.Context, s *session) error {
	applied, err := s.runner.Up(ctx)
	for _, file := range applied {
		fmt.Fprintln(s.out, "applied:", file)
	}
	return err
}

func down(ctx context.Context, s *session) error {
	file, err := s.runner.Down(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, "rolled back:", file)
	return nil
}

func status(ctx context.Context, s *session) error {
	rows, err := s.runner.Status(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		state := "pending"
		if row.Applied {
			state = row.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(s.out, "%-25s %s\n", state, row.File)
	}
	return nil
}

func toVersion(ctx context.Context, s *session) error {
	if s.opts.version == "" {
		return errors.New("version needs -version")
	}
	return s.runner.To(ctx, s.opts.version)
}

// seedAdmin creates the first admin operator. Without CONTRACT_SEED_ADMIN_PASSWORD a temporary
// password is generated and printed once.
func seedAdmin(ctx context.Context, s *session) error {
	if s.opts.adminEmail == "" || s.opts.adminName == "" {
		return errors.New("seed-admin needs -email and -operator-name")
	}
	password := os.Getenv("CONTRACT_SEED_ADMIN_PASSWORD")
	generated := password == ""
	if generated {
		var err error
		if password, err = security.TempPassword(16); err != nil {
			return err
		}
	}

	registrar, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       s.client,
		PasswordConfig: s.cfg.Password,
	})
	if err != nil {
		return err
	}
	user, err := registrar.Register(ctx, auth.RegisterRequest{
		Email:    s.opts.adminEmail,
		Name:     s.opts.adminName,
		Password: password,
		Role:     enums.OperatorRoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	fmt.Fprintln(s.out, "created admin operator:", user.ID)
	if generated {
		fmt.Fprintln(s.out, "temporary password:", password)
	}
	return nil
}
