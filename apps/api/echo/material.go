package echoapi

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elevana/core"
	"github.com/trezcool/elevana/core/material"
	"github.com/trezcool/elevana/core/user"
)

type materialApi struct {
	*Server
}

func registerMaterialAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := materialApi{s}

	mg := g.Group("/materials", jwt, mentorOnly)
	mg.GET("", api.list)
	mg.POST("", api.upload)
	mg.DELETE("", api.destroyMultiple)
	mg.POST("/assign", api.assign)
}

// Handlers

func (api materialApi) list(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	mats, err := api.deps.MaterialSvc.ListForMentor(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing materials")
	}
	return ctx.JSON(http.StatusOK, mats)
}

func (api materialApi) upload(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	classroomID, err := api.ownedClassroomID(ctx, usr, ctx.FormValue("classroom_id"))
	if err != nil {
		return err
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

	reqCtx := ctx.Request().Context()
	url, err := api.deps.Media.Save(reqCtx, fh.Filename, file)
	if err != nil {
		return errors.Wrap(err, "saving uploaded file")
	}

	fileType := fh.Header.Get(echo.HeaderContentType)
	if fileType == "" || fileType == echo.MIMEOctetStream {
		if t := mime.TypeByExtension(filepath.Ext(fh.Filename)); t != "" {
			fileType = t
		}
	}
	name := core.CleanString(ctx.FormValue("name"))
	if name == "" {
		name = fh.Filename
	}

	mat, err := api.deps.MaterialSvc.Create(reqCtx, usr.ID, material.NewMaterial{
		Name:        name,
		URL:         url,
		FileType:    fileType,
		ClassroomID: classroomID,
	})
	if err != nil {
		_ = api.deps.Media.Delete(reqCtx, url)
		return errors.Wrap(err, "creating material")
	}
	return ctx.JSON(http.StatusCreated, mat)
}

func (api materialApi) destroyMultiple(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ids, err := parseIDs(ctx.QueryParams()["id"])
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	deleted, err := api.deps.MaterialSvc.Delete(reqCtx, usr.ID, ids)
	if err != nil {
		return errors.Wrap(err, "deleting materials")
	}
	for _, mat := range deleted {
		if err = api.deps.Media.Delete(reqCtx, mat.URL); err != nil {
			api.deps.Logger.Warn(fmt.Sprintf("removing file of material %d: %v", mat.ID, err), err, usr)
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api materialApi) assign(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data material.Assignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Assignment")
	}
	if err = api.deps.Validate.Struct(data); err != nil {
		return err
	}
	if data.ClassroomID.Valid {
		if _, err = api.deps.ClassroomSvc.GetOwned(ctx.Request().Context(), usr, data.ClassroomID.Int64); err != nil {
			return errors.Wrap(err, "getting classroom")
		}
	}

	if err = api.deps.MaterialSvc.Assign(ctx.Request().Context(), usr.ID, data); err != nil {
		return errors.Wrap(err, "assigning materials")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ownedClassroomID parses an optional classroom id form value and checks usr owns that classroom.
func (api materialApi) ownedClassroomID(ctx echo.Context, usr user.User, val string) (null.Int64, error) {
	val = strings.TrimSpace(val)
	if val == "" || val == "null" {
		return null.Int64{}, nil
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil || id <= 0 {
		return null.Int64{}, core.NewValidationError(err, core.FieldError{Field: "classroom_id", Error: "invalid classroom id"})
	}
	if _, err = api.deps.ClassroomSvc.GetOwned(ctx.Request().Context(), usr, id); err != nil {
		return null.Int64{}, errors.Wrap(err, "getting classroom")
	}
	return null.Int64From(id), nil
}

func parseIDs(vals []string) ([]int64, error) {
	ids := make([]int64, 0, len(vals))
	for _, v := range vals {
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || id <= 0 {
				return nil, core.NewValidationError(err, core.FieldError{Field: "id", Error: "invalid id " + strconv.Quote(part)})
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
