package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elevana/core/user"
)

type studentApi struct {
	*Server
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := studentApi{s}

	sg := g.Group("/students/me", jwt, studentOnly)
	sg.GET("", api.profile)
	sg.POST("/xp", api.awardXP)
}

// Handlers

func (api studentApi) profile(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr.Profile())
}

func (api studentApi) awardXP(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data user.XPReward
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to XPReward")
	}
	if err = api.deps.Validate.Struct(data); err != nil {
		return err
	}

	usr, err = api.deps.UserSvc.AwardXP(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "awarding xp")
	}
	return ctx.JSON(http.StatusOK, usr.Profile())
}
