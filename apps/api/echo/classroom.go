package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elevana/core/classroom"
)

type classroomApi struct {
	*Server
}

func registerClassroomAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := classroomApi{s}

	cg := g.Group("/classrooms", jwt)
	cg.GET("", api.list)
	cg.POST("", api.create, mentorOnly)
	cg.POST("/join", api.join, studentOnly)

	// detail endpoints
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, mentorOnly)
	cg.DELETE("/:id", api.destroy, mentorOnly)
	cg.DELETE("/:id/students/:studentId", api.removeStudent, mentorOnly)
	cg.DELETE("/:id/activities/:activityId", api.unassignActivity, mentorOnly)
}

// Handlers

func (api classroomApi) list(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	classes, err := api.deps.ClassroomSvc.List(ctx.Request().Context(), usr, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "listing classrooms")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api classroomApi) create(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data classroom.NewClassroom
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassroom")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	cls, err := api.deps.ClassroomSvc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating classroom")
	}
	// answer with the full representation
	if cls, err = api.deps.ClassroomSvc.Get(ctx.Request().Context(), usr, cls.ID); err != nil {
		return errors.Wrap(err, "getting classroom")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api classroomApi) join(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data classroom.JoinRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	cls, err := api.deps.ClassroomSvc.Join(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "joining classroom")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api classroomApi) retrieve(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	cls, err := api.deps.ClassroomSvc.Get(ctx.Request().Context(), usr, id)
	if err != nil {
		return errors.Wrap(err, "getting classroom")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api classroomApi) update(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data classroom.UpdateClassroom
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClassroom")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	cls, err := api.deps.ClassroomSvc.Update(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return errors.Wrap(err, "updating classroom")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api classroomApi) destroy(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	if err = api.deps.ClassroomSvc.Delete(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "deleting classroom")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api classroomApi) removeStudent(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	if err = api.deps.ClassroomSvc.RemoveStudent(ctx.Request().Context(), usr, id, ctx.Param("studentId")); err != nil {
		return errors.Wrap(err, "removing student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api classroomApi) unassignActivity(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	activityID, err := paramID(ctx, "activityId")
	if err != nil {
		return err
	}

	if err = api.deps.ClassroomSvc.UnassignActivity(ctx.Request().Context(), usr, id, activityID); err != nil {
		return errors.Wrap(err, "unassigning activity")
	}
	return ctx.NoContent(http.StatusNoContent)
}
