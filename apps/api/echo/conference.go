package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/qazmun/mun/core/application"
	"github.com/qazmun/mun/core/assignment"
	"github.com/qazmun/mun/core/conference"
)

type conferenceApi struct {
	svc         *conference.Service
	apps        *application.Service
	assignments *assignment.Service
}

func registerConferenceAPI(g *echo.Group, jwt, optionalJWT echo.MiddlewareFunc, s *Server) {
	api := conferenceApi{
		svc:         s.ConferenceSvc,
		apps:        s.ApplicationSvc,
		assignments: s.AssignmentSvc,
	}

	cg := g.Group("/conferences")
	cg.GET("", api.queryPublished)
	cg.GET("/home", api.queryHome)
	cg.GET("/calendar", api.queryCalendar)
	cg.POST("", api.create, jwt)
	cg.GET("/pending", api.queryPending, jwt)
	cg.GET("/managed", api.queryManaged, jwt)
	cg.GET("/:id", api.retrieve, optionalJWT)
	cg.DELETE("/:id", api.delete, jwt)
	cg.POST("/:id/approve", api.approve, jwt)
	cg.POST("/:id/reject", api.reject, jwt)
	cg.PUT("/:id/registration", api.setRegistration, jwt)
	cg.GET("/:id/committees", api.queryCommittees, optionalJWT)

	cg.GET("/:id/applications", api.queryApplications, jwt)
	cg.POST("/:id/applications", api.submitApplication, jwt)
	cg.GET("/:id/applications/mine", api.retrieveMyApplication, jwt)
	cg.POST("/:id/assignments", api.runAssignment, jwt)
	cg.GET("/:id/assignments", api.assignmentStats, jwt)
	cg.GET("/:id/roster.csv", api.roster, jwt)
}

func (api *conferenceApi) queryPublished(ctx echo.Context) error {
	filter := conference.PublishedFilter{
		RegistrationOpen: queryBool(ctx, "registration_open"),
		Limit:            queryInt(ctx, "limit", 0),
	}
	confs, err := api.svc.QueryPublished(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying published conferences")
	}
	return ctx.JSON(http.StatusOK, confs)
}

func (api *conferenceApi) queryHome(ctx echo.Context) error {
	confs, err := api.svc.QueryHome(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying home conferences")
	}
	return ctx.JSON(http.StatusOK, confs)
}

func (api *conferenceApi) queryCalendar(ctx echo.Context) error {
	confs, err := api.svc.QueryUpcoming(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying upcoming conferences")
	}
	return ctx.JSON(http.StatusOK, confs)
}

func (api *conferenceApi) create(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	var data conference.NewConference
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewConference")
	}
	conf, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating conference")
	}
	return ctx.JSON(http.StatusCreated, conf)
}

func (api *conferenceApi) queryPending(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	confs, err := api.svc.QueryPending(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying pending conferences")
	}
	return ctx.JSON(http.StatusOK, confs)
}

func (api *conferenceApi) queryManaged(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	confs, err := api.svc.QueryManaged(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying managed conferences")
	}
	return ctx.JSON(http.StatusOK, confs)
}

func (api *conferenceApi) retrieve(ctx echo.Context) error {
	conf, err := api.svc.Get(ctx.Request().Context(), optionalProfile(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, conf)
}

func (api *conferenceApi) delete(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting conference")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *conferenceApi) approve(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	conf, err := api.svc.Approve(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "approving conference")
	}
	return ctx.JSON(http.StatusOK, conf)
}

func (api *conferenceApi) reject(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	conf, err := api.svc.Reject(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "rejecting conference")
	}
	return ctx.JSON(http.StatusOK, conf)
}

func (api *conferenceApi) setRegistration(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	var data RegistrationStateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegistrationStateRequest")
	}
	if data.RegistrationOpen == nil {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"registration_open": "this field is required"})
	}
	conf, err := api.svc.SetRegistrationOpen(ctx.Request().Context(), actor, ctx.Param("id"), *data.RegistrationOpen)
	if err != nil {
		return errors.Wrap(err, "setting registration state")
	}
	return ctx.JSON(http.StatusOK, conf)
}

func (api *conferenceApi) queryCommittees(ctx echo.Context) error {
	cms, err := api.svc.Committees(ctx.Request().Context(), optionalProfile(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cms)
}

func (api *conferenceApi) queryApplications(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	apps, err := api.apps.QueryByConference(ctx.Request().Context(), actor, ctx.Param("id"), queryStatuses(ctx)...)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *conferenceApi) submitApplication(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	var data application.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}
	app, err := api.apps.Submit(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting application")
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *conferenceApi) retrieveMyApplication(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	app, err := api.apps.GetMine(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *conferenceApi) runAssignment(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	res, err := api.assignments.Run(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "running assignment")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *conferenceApi) assignmentStats(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	stats, err := api.assignments.Stats(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing assignment stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *conferenceApi) roster(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	conf, apps, err := api.apps.Roster(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "loading roster")
	}

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	resp.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "roster-"+conf.ID+".csv"))
	resp.WriteHeader(http.StatusOK)
	return application.WriteRosterCSV(resp, conf.Committees, apps)
}
