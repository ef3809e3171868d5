package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/user"
)

type userApi struct {
	svc      *user.Service
	validate *validator.Validate
	server   *Server
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := userApi{
		svc:      s.UserSvc,
		validate: s.Validate,
		server:   s,
	}

	// un-authed endpoints
	ag := g.Group("/auth")
	ag.POST("/signup", api.signUp)
	ag.POST("/login", api.login)
	ag.POST("/token-refresh", api.refreshToken, jwt)

	g.GET("/regions", api.queryRegions)
	g.GET("/secretariat", api.querySecretariat)

	pg := g.Group("/profiles", jwt)
	pg.GET("", api.queryProfiles)
	pg.GET("/me", api.retrieveMe)
	pg.PUT("/me", api.updateMe)
	pg.PUT("/me/photo", api.setPhoto)
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id/role", api.setRole)
	pg.PUT("/:id/school", api.setSchool)
}

// Handlers

func (api *userApi) signUp(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	usr, prof, err := api.svc.SignUp(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "signing up")
	}
	token, err := GenerateToken(api.server.Conf, usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, SignUpResponse{Token: token, Profile: prof})
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return authErr(err)
	}
	token, err := GenerateToken(api.server.Conf, usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.server.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) queryRegions(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Regions())
}

func (api *userApi) querySecretariat(ctx echo.Context) error {
	profs, err := api.svc.QuerySecretariat(ctx.Request().Context(), queryInt(ctx, "school_id", 0))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, publicProfiles(profs))
}

func (api *userApi) queryProfiles(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.Profile{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	profs, err := api.svc.QueryProfiles(ctx.Request().Context(), actor, *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying profiles")
	}
	if profs == nil {
		profs = []user.Profile{}
	}
	return ctx.JSON(http.StatusOK, profs)
}

func (api *userApi) retrieveMe(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, actor)
}

func (api *userApi) updateMe(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	var data user.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	prof, err := api.svc.UpdateProfile(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *userApi) setPhoto(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	fh, err := ctx.FormFile("photo")
	if err != nil {
		return core.NewFieldError("photo", "this field is required")
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening photo")
	}
	defer file.Close()

	prof, err := api.svc.SetPhoto(ctx.Request().Context(), actor, user.PhotoUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Content:     file,
	})
	if err != nil {
		return errors.Wrap(err, "setting photo")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	prof, err := api.svc.GetProfile(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prof.Public())
}

func (api *userApi) setRole(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	var data RoleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RoleRequest")
	}
	prof, err := api.svc.SetRole(ctx.Request().Context(), actor, ctx.Param("id"), user.Role(core.CleanString(data.Role, true /* lower */)))
	if err != nil {
		return errors.Wrap(err, "setting role")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *userApi) setSchool(ctx echo.Context) error {
	actor, err := getContextProfile(ctx)
	if err != nil {
		return err
	}
	var data SchoolRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SchoolRequest")
	}
	prof, err := api.svc.SetSchool(ctx.Request().Context(), actor, ctx.Param("id"), data.SchoolID)
	if err != nil {
		return errors.Wrap(err, "setting school")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func publicProfiles(profs []user.Profile) []user.PublicProfile {
	res := make([]user.PublicProfile, 0, len(profs))
	for _, p := range profs {
		res = append(res, p.Public())
	}
	return res
}
