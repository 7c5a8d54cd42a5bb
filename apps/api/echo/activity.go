package echoapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elevana/core"
	"github.com/trezcool/elevana/core/activity"
)

type activityApi struct {
	*Server
}

func registerActivityAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := activityApi{s}

	ag := g.Group("/activities", jwt, mentorOnly)
	ag.POST("/upload", api.upload)
}

type UploadActivityResponse struct {
	Activity activity.Summary `json:"activity"`
	Warnings []string         `json:"warnings"`
}

// Handlers

func (api activityApi) upload(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	classroomID, err := strconv.ParseInt(ctx.FormValue("classroom_id"), 10, 64)
	if err != nil || classroomID <= 0 {
		return core.NewValidationError(err, core.FieldError{Field: "classroom_id", Error: "invalid classroom id"})
	}
	reqCtx := ctx.Request().Context()
	if _, err = api.deps.ClassroomSvc.GetOwned(reqCtx, usr, classroomID); err != nil {
		return errors.Wrap(err, "getting classroom")
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "file", Error: "a file is required"})
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = file.Close() }()
	content, err := io.ReadAll(file)
	if err != nil {
		return errors.Wrap(err, "reading uploaded file")
	}

	sum, warnings, err := api.deps.ActivitySvc.Create(reqCtx, activity.Upload{
		MentorID:    usr.ID,
		ClassroomID: classroomID,
		Kind:        activity.Kind(ctx.FormValue("type")),
		FileName:    fh.Filename,
		Content:     content,
	})
	if err != nil {
		return errors.Wrap(err, "creating activity")
	}

	res := UploadActivityResponse{Activity: sum, Warnings: make([]string, 0, len(warnings))}
	for _, w := range warnings {
		res.Warnings = append(res.Warnings, w.String())
	}
	return ctx.JSON(http.StatusCreated, res)
}
