package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/qazmun/mun/storage/database"
)

var runMigrationsFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if cli.db == nil {
		return errors.New("migrate needs a database")
	}
	return runMigrationsFunc(ctx, cli.db, args[0], args[1:]...)
}
