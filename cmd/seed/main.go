package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"usermgmt/internal/auth"
	"usermgmt/internal/config"
	"usermgmt/internal/db"
	apperrors "usermgmt/internal/errors"
	"usermgmt/internal/logging"
	"usermgmt/internal/repository"
	"usermgmt/internal/service"
)

// SeedAccountData is one entry of the seed file.
type SeedAccountData struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func main() {
	file := flag.String("file", "accounts.json", "path to a JSON array of {username, password} objects")
	flag.Parse()

	cfg := config.Load()
	log := logging.NewJSON(os.Stdout, cfg.LogLevel)
	ctx := context.Background()

	if err := run(ctx, cfg, log, *file); err != nil {
		log.Error(ctx, "seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logging.Logger, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	entries, err := readSeedFile(f)
	if err != nil {
		return err
	}
	log.Info(ctx, "seed file loaded", "path", path, "accounts", len(entries))

	gormDB, err := db.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, sqlDB); err != nil {
			return err
		}
	}

	accountRepo := repository.NewAccountRepository(gormDB)
	svc := service.NewAccountService(accountRepo, auth.NewBcryptHasher(cfg.BcryptCost), nil, 0, log)

	created, skipped, err := seedAccounts(ctx, svc, entries, log)
	if err != nil {
		return err
	}
	log.Info(ctx, "seed completed", "created", created, "skipped", skipped)
	return nil
}

func readSeedFile(r io.Reader) ([]SeedAccountData, error) {
	var entries []SeedAccountData
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return entries, nil
}

// seedAccounts registers every entry through the normal registration path,
// so on an empty store the first entry becomes the admin. Existing usernames
// and rejected passwords are skipped.
func seedAccounts(ctx context.Context, svc service.AccountService, entries []SeedAccountData, log logging.Logger) (created int, skipped int, err error) {
	for _, entry := range entries {
		account, err := svc.Register(ctx, entry.Username, entry.Password)
		switch {
		case err == nil:
			created++
			log.Info(ctx, "seeded account", "username", account.Username, "is_admin", account.IsAdmin)
		case errors.Is(err, apperrors.ErrUsernameConflict), errors.Is(err, apperrors.ErrPasswordTooLong):
			skipped++
			log.Warn(ctx, "skipped account", "username", entry.Username, "reason", err.Error())
		default:
			return created, skipped, fmt.Errorf("seed %q: %w", entry.Username, err)
		}
	}
	return created, skipped, nil
}
