package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/qazmun/mun/core/news"
)

type newsApi struct {
	svc *news.Service
}

func registerNewsAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := newsApi{svc: s.NewsSvc}

	ng := g.Group("/news")
	ng.GET("", api.query)
	ng.POST("", api.create, jwt)
	ng.GET("/:id", api.retrieve)
	ng.PUT("/:id", api.update, jwt)
	ng.DELETE("/:id", api.delete, jwt)
}

func (api *newsApi) query(ctx echo.Context) error {
	articles, err := api.svc.Query(ctx.Request().Context(), queryInt(ctx, "limit", 0))
	if err != nil {
		return errors.Wrap(err, "querying news")
	}
	return ctx.JSON(http.StatusOK, articles)
}

func (api *newsApi) retrieve(ctx echo.Context) error {
	article, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, article)
}

func (api *newsApi) create(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	var data news.NewArticle
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewArticle")
	}
	article, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating article")
	}
	return ctx.JSON(http.StatusCreated, article)
}

func (api *newsApi) update(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	var data news.UpdateArticle
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateArticle")
	}
	article, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating article")
	}
	return ctx.JSON(http.StatusOK, article)
}

func (api *newsApi) delete(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting article")
	}
	return ctx.NoContent(http.StatusNoContent)
}
