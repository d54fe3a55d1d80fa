package cli

import (
	"context"

	"github.com/nqrduck/quacksim/internal/db"
)

func openDatabase() (*db.DB, error) {
	cfg := GetConfig()
	database, err := db.Open(db.Config{Path: cfg.Database.Path})
	if err != nil {
		return nil, &PreflightError{
			Message:  err.Error(),
			Hint:     "Set database.path to a writable location",
			NextStep: "quacksim config show",
			Err:      err,
		}
	}
	if _, err := database.MigrateUp(context.Background()); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
