package main

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/user"
	logsvc "github.com/qazmun/mun/services/logger"
	"github.com/qazmun/mun/storage/database"
	sqlxrepos "github.com/qazmun/mun/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.New(conf)
	defer logger.Sync()

	if err := run(conf, logger, os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			logger.Error("admin command failed", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}

func run(conf *core.Config, logger core.Logger, args []string) error {
	ctx := context.Background()
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	db, err := database.Open(ctx, conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	// photos are not handled from the command line
	cli := commandLine{
		db:     db,
		usrSvc: user.NewService(sqlxrepos.NewUserRepository(db), nil, validate, conf, logger),
	}
	return cli.run(ctx, args)
}
