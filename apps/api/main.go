package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers

	"github.com/pkg/errors"

	"github.com/qazmun/mun/apps/api/di"
	echoapi "github.com/qazmun/mun/apps/api/echo"
	"github.com/qazmun/mun/core"
	logsvc "github.com/qazmun/mun/services/logger"
)

var build = "develop"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	conf := core.NewConfig()
	if conf.Build == "" {
		conf.Build = build
	}
	expvar.NewString("build").Set(conf.Build)

	container := di.New(conf)
	return container.Invoke(func(server *echoapi.Server, logger *logsvc.Logger, closer *di.Closer) error {
		defer func() {
			_ = closer.Close()
			logger.Sync()
		}()
		logger.Info("Application initializing : version " + conf.Build)

		// /debug/vars and /debug/pprof are not exposed on the public host.
		go func() {
			logger.Info("Debug server listening on " + conf.Server.DebugHost)
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				logger.Error("debug server closed", err)
			}
		}()

		go server.Start()

		select {
		case err := <-server.Errors():
			return errors.Wrap(err, "server error")

		case sig := <-server.ShutdownSignal():
			logger.Info("Start shutdown : " + sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				_ = server.Close()
				return errors.Wrap(err, "could not stop server gracefully")
			}
		}
		return nil
	})
}
