package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elevana/client"
	"github.com/trezcool/elevana/core/activity"
	"github.com/trezcool/elevana/core/classroom"
	"github.com/trezcool/elevana/core/user"
)

func (app testApp) newClient(t *testing.T) *client.API {
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)
	api, err := client.New(client.Options{BaseURL: srv.URL + "/v1", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return api
}

func TestClient_mentorFlow(t *testing.T) {
	ctx := context.Background()
	app := setup(t)
	app.createUser(t, "Ada", "ada@elevana.test", user.RoleMentor)
	api := app.newClient(t)

	_, err := api.Login(ctx, "ada@elevana.test", "wrong-password")
	assert.Equal(t, http.StatusBadRequest, client.StatusCode(err), "%v", err)

	profile, err := api.Login(ctx, "ada@elevana.test", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, user.RoleMentor, profile.Role)
	require.NoError(t, api.RefreshToken(ctx))

	classes := client.NewClassService(api, nil)
	materials := client.NewMaterialService(api, nil)
	require.NoError(t, classes.Load(ctx))
	require.NoError(t, materials.Load(ctx))

	bio, err := classes.CreateClass(ctx, classroom.NewClassroom{Name: "Biology"})
	require.NoError(t, err)
	art, err := classes.CreateClass(ctx, classroom.NewClassroom{Name: "Art"})
	require.NoError(t, err)
	assert.Len(t, classes.All().Get(), 2)

	require.NoError(t, classes.Select(ctx, bio.ID))
	_, err = classes.UpdateClass(ctx, bio.ID, classroom.UpdateClassroom{Name: "Biology 101"})
	require.NoError(t, err)
	assert.Equal(t, "Biology 101", classes.Selected().Get().Name)

	t.Run("validation error", func(t *testing.T) {
		_, err := api.CreateClassroom(ctx, classroom.NewClassroom{Name: strings.Repeat("x", 300)})
		var herr *client.HTTPError
		require.True(t, errors.As(err, &herr), "%v", err)
		assert.Equal(t, http.StatusBadRequest, herr.StatusCode)
		assert.Contains(t, herr.Fields, "name")
	})

	t.Run("materials", func(t *testing.T) {
		var progress []client.UploadProgress
		mat, err := materials.Upload(ctx, "notes.pdf", strings.NewReader("%PDF-1.4"), null.Int64From(bio.ID), func(p client.UploadProgress) {
			progress = append(progress, p)
		})
		require.NoError(t, err)
		assert.True(t, mat.AssignedTo(null.Int64From(bio.ID)))
		require.NotEmpty(t, progress)
		assert.Equal(t, 100.0, progress[len(progress)-1].Percent())

		require.NoError(t, materials.Assign(ctx, []int64{mat.ID}, null.Int64From(art.ID)))
		assert.Len(t, materials.ForClassroom(null.Int64From(art.ID)), 1)

		require.NoError(t, materials.Delete(ctx, []int64{mat.ID}))
		assert.Empty(t, materials.All().Get())
	})

	t.Run("publish activity", func(t *testing.T) {
		form := activity.NewForm(activity.KindMission, api)
		require.NoError(t, form.SetTitle("Cells"))
		require.NoError(t, form.SetXP(40))
		i, err := form.AddProblem(activity.TypeQA)
		require.NoError(t, err)
		require.NoError(t, form.SetQuestion(i, "Smallest unit of life?"))
		require.NoError(t, form.AddAnswer(i, "cell"))
		require.NoError(t, form.SelectClass(bio.ID))
		require.NoError(t, form.SelectClass(art.ID))

		require.NoError(t, form.Submit(ctx))
		assert.Equal(t, activity.Submitted, form.State())

		require.NoError(t, classes.Load(ctx))
		for _, c := range classes.All().Get() {
			require.Len(t, c.Activities, 1, c.Name)
			assert.Equal(t, "Cells", c.Activities[0].Title)
		}

		actID := classes.Selected().Get().Activities[0].ID
		require.NoError(t, classes.UnassignActivity(ctx, bio.ID, actID))
		assert.Empty(t, classes.Selected().Get().Activities)
	})

	t.Run("publish to a foreign classroom", func(t *testing.T) {
		form := activity.NewForm(activity.KindMinigame, api)
		require.NoError(t, form.SetTitle("Quiz"))
		require.NoError(t, form.SelectClass(bio.ID))
		require.NoError(t, form.SelectClass(99999))

		err := form.Submit(ctx)
		var uerr *activity.UploadError
		require.True(t, errors.As(err, &uerr), "%v", err)
		assert.Equal(t, []int64{bio.ID}, uerr.Succeeded)
		assert.Equal(t, http.StatusNotFound, client.StatusCode(uerr.Failed[99999]))
		assert.Equal(t, activity.Editing, form.State())
	})

	require.NoError(t, classes.DeleteClass(ctx, bio.ID))
	assert.Nil(t, classes.Selected().Get())
	assert.Len(t, classes.All().Get(), 1)
}

func TestClient_studentFlow(t *testing.T) {
	ctx := context.Background()
	app := setup(t)
	mentor := app.createUser(t, "Ada", "ada@elevana.test", user.RoleMentor)
	cls := app.createClassroom(t, app.getToken(t, mentor), classroom.NewClassroom{Name: "Biology"})

	api := app.newClient(t)
	_, err := api.ListClassrooms(ctx)
	assert.True(t, errors.Is(err, client.ErrNoSession))

	profile, err := api.Register(ctx, user.NewUser{
		Name:            "Linus",
		Email:           "linus@elevana.test",
		Password:        "Passw0rd!",
		PasswordConfirm: "Passw0rd!",
		Role:            user.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, profile.Role)
	assert.True(t, api.Session().Current().Get().IsStudent())

	classes := client.NewClassService(api, nil)
	require.NoError(t, classes.Load(ctx))
	assert.Empty(t, classes.All().Get())

	joined, err := classes.JoinClass(ctx, strings.ToLower(cls.ClassCode))
	require.NoError(t, err)
	assert.Equal(t, cls.ID, joined.ID)
	assert.Len(t, classes.All().Get(), 1)

	_, err = api.ListMaterials(ctx)
	assert.Equal(t, http.StatusForbidden, client.StatusCode(err))

	prog := client.NewProgressService(api)
	require.NoError(t, prog.Load(ctx))
	assert.Equal(t, 1, prog.Progress().Get().Level)

	require.NoError(t, prog.AddXP(ctx, 250))
	assert.Equal(t, 250, prog.Progress().Get().XP)
	assert.Equal(t, 2, prog.Progress().Get().Level)

	api.Session().End()
	assert.True(t, errors.Is(prog.Load(ctx), client.ErrNoSession))
	assert.Equal(t, 250, prog.Progress().Get().XP)
}
