package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/qazmun/mun/core/application"
)

type applicationApi struct {
	svc *application.Service
}

func registerApplicationAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := applicationApi{svc: s.ApplicationSvc}

	ag := g.Group("/applications", jwt)
	ag.GET("/mine", api.queryMine)
	ag.PUT("/:id/status", api.setStatus)
	ag.PUT("/:id/placement", api.setPlacement)
}

func (api *applicationApi) queryMine(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	apps, err := api.svc.QueryMine(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *applicationApi) setStatus(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	var data application.StatusUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}
	app, err := api.svc.SetStatus(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "setting application status")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *applicationApi) setPlacement(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	var data application.Placement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Placement")
	}
	app, err := api.svc.SetPlacement(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "setting placement")
	}
	return ctx.JSON(http.StatusOK, app)
}
