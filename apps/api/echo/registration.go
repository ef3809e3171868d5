package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/qazmun/mun/core/registration"
)

type registrationApi struct {
	svc *registration.Service
}

func registerRegistrationAPI(g *echo.Group, jwt, optionalJWT echo.MiddlewareFunc, s *Server) {
	api := registrationApi{svc: s.RegistrationSvc}

	rg := g.Group("/registrations")
	rg.POST("", api.create, optionalJWT)
	rg.GET("/mine", api.queryMine, jwt)
}

func (api *registrationApi) create(ctx echo.Context) error {
	var data registration.NewRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRegistration")
	}
	reg, err := api.svc.Create(ctx.Request().Context(), optionalProfile(ctx), data)
	if err != nil {
		return errors.Wrap(err, "registering")
	}
	return ctx.JSON(http.StatusCreated, reg)
}

func (api *registrationApi) queryMine(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	regs, err := api.svc.QueryMine(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	return ctx.JSON(http.StatusOK, regs)
}
