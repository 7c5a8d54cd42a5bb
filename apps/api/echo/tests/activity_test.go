package tests

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/elevana/apps/api/echo"
	"github.com/trezcool/elevana/core/activity"
	"github.com/trezcool/elevana/core/classroom"
	"github.com/trezcool/elevana/core/user"
)

func Test_activityApi_upload(t *testing.T) {
	app := setup(t)
	mentor := app.createUser(t, "Ada", "ada@elevana.test", user.RoleMentor)
	other := app.createUser(t, "Grace", "grace@elevana.test", user.RoleMentor)
	mentorToken := app.getToken(t, mentor)

	cls := app.createClassroom(t, mentorToken, classroom.NewClassroom{Name: "Biology"})
	othersCls := app.createClassroom(t, app.getToken(t, other), classroom.NewClassroom{Name: "Art"})
	clsID := strconv.FormatInt(cls.ID, 10)

	idx := 1
	content, err := activity.Marshal(activity.Activity{
		Kind:  activity.KindMission,
		Title: "Cells, and more",
		XP:    50,
		Problems: []activity.Problem{
			{Type: activity.TypeMCQ, Question: "Smallest unit?", Options: []string{"Atom", "Cell"}, CorrectOptionIndex: &idx},
		},
		ClassIDs: []int64{cls.ID},
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		fields   map[string]string
		file     []byte
		wantCode int
		wantData interface{}
	}{
		{
			name: "malformed classroom id", fields: map[string]string{"type": "mission", "classroom_id": "lol"}, file: content,
			wantCode: http.StatusBadRequest, wantData: map[string]string{"classroom_id": "invalid classroom id"},
		},
		{
			name: "classroom not owned", fields: map[string]string{"type": "mission", "classroom_id": strconv.FormatInt(othersCls.ID, 10)}, file: content,
			wantCode: http.StatusNotFound, wantData: httpErr{Error: classroom.ErrNotFound.Error()},
		},
		{
			name: "file required", fields: map[string]string{"type": "mission", "classroom_id": clsID},
			wantCode: http.StatusBadRequest, wantData: map[string]string{"file": "a file is required"},
		},
		{
			name: "invalid type", fields: map[string]string{"type": "quiz", "classroom_id": clsID}, file: content,
			wantCode: http.StatusBadRequest, wantData: map[string]string{"type": "kind must be one of mission, case-study, minigame"},
		},
		{
			name: "no title", fields: map[string]string{"type": "mission", "classroom_id": clsID}, file: []byte("Key,Value\nxp,10\n"),
			wantCode: http.StatusBadRequest, wantData: map[string]string{"file": "activity has no title"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileName := ""
			if tt.file != nil {
				fileName = "mission.csv"
			}
			rec := app.do(t, http.MethodPost, "/v1/activities/upload", mentorToken, newMultipart(t, tt.fields, fileName, tt.file))
			checkCodeAndData(t, rec, tt.wantCode, tt.wantData)
		})
	}

	t.Run("success", func(t *testing.T) {
		body := newMultipart(t, map[string]string{"type": "mission", "classroom_id": clsID}, "mission-cells.csv", content)
		rec := app.do(t, http.MethodPost, "/v1/activities/upload", mentorToken, body)
		require.True(t, checkStatus(t, rec, http.StatusCreated))

		var resp echoapi.UploadActivityResponse
		decode(t, rec, &resp)
		assert.Empty(t, resp.Warnings)
		assert.NotZero(t, resp.Activity.ID)
		assert.Equal(t, cls.ID, resp.Activity.ClassroomID)
		assert.Equal(t, mentor.ID, resp.Activity.MentorID)
		assert.Equal(t, activity.KindMission, resp.Activity.Kind)
		assert.Equal(t, "Cells, and more", resp.Activity.Title)
		assert.Equal(t, 50, resp.Activity.XP)
		assert.Equal(t, "mission-cells.csv", resp.Activity.FileName)
	})

	t.Run("tolerated rows are reported", func(t *testing.T) {
		body := newMultipart(t, map[string]string{"type": "minigame", "classroom_id": clsID}, "game.csv", []byte("Key,Value\ntitle,Memory\nxp,lots\n"))
		rec := app.do(t, http.MethodPost, "/v1/activities/upload", mentorToken, body)
		require.True(t, checkStatus(t, rec, http.StatusCreated))

		var resp echoapi.UploadActivityResponse
		decode(t, rec, &resp)
		require.Len(t, resp.Warnings, 1)
		assert.Contains(t, resp.Warnings[0], "xp")
		assert.Zero(t, resp.Activity.XP)
	})

	rec := app.do(t, http.MethodGet, classPath(cls.ID), mentorToken, nil)
	require.True(t, checkStatus(t, rec, http.StatusOK))
	var got classroom.Classroom
	decode(t, rec, &got)
	assert.Len(t, got.Activities, 2)
}
