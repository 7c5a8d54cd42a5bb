package tests

import (
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elevana/core/classroom"
	"github.com/trezcool/elevana/core/material"
	"github.com/trezcool/elevana/core/user"
)

func (app testApp) uploadMaterial(t *testing.T, token string, fields map[string]string, fileName, content string) material.Material {
	rec := app.do(t, http.MethodPost, "/v1/materials", token, newMultipart(t, fields, fileName, []byte(content)))
	require.True(t, checkStatus(t, rec, http.StatusCreated))
	var mat material.Material
	decode(t, rec, &mat)
	return mat
}

func (app testApp) listMaterials(t *testing.T, token string) []material.Material {
	rec := app.do(t, http.MethodGet, "/v1/materials", token, nil)
	require.True(t, checkStatus(t, rec, http.StatusOK))
	var mats []material.Material
	decode(t, rec, &mats)
	return mats
}

func Test_materialApi_upload(t *testing.T) {
	app := setup(t)
	mentor := app.createUser(t, "Ada", "ada@elevana.test", user.RoleMentor)
	other := app.createUser(t, "Grace", "grace@elevana.test", user.RoleMentor)
	student := app.createUser(t, "Hero", "hero@elevana.test", user.RoleStudent)
	mentorToken := app.getToken(t, mentor)

	cls := app.createClassroom(t, mentorToken, classroom.NewClassroom{Name: "Biology"})
	othersCls := app.createClassroom(t, app.getToken(t, other), classroom.NewClassroom{Name: "Art"})

	tests := []struct {
		name     string
		token    string
		fields   map[string]string
		fileName string
		wantCode int
		wantData interface{}
	}{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: errMissingToken},
		{name: "mentor required", token: app.getToken(t, student), fileName: "a.pdf", wantCode: http.StatusForbidden, wantData: httpErr{Error: "permission denied"}},
		{name: "file required", token: mentorToken, wantCode: http.StatusBadRequest, wantData: map[string]string{"file": "a file is required"}},
		{
			name: "malformed classroom id", token: mentorToken, fields: map[string]string{"classroom_id": "lol"}, fileName: "a.pdf",
			wantCode: http.StatusBadRequest, wantData: map[string]string{"classroom_id": "invalid classroom id"},
		},
		{
			name: "classroom not owned", token: mentorToken, fields: map[string]string{"classroom_id": strconv.FormatInt(othersCls.ID, 10)}, fileName: "a.pdf",
			wantCode: http.StatusNotFound, wantData: httpErr{Error: classroom.ErrNotFound.Error()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, "/v1/materials", tt.token, newMultipart(t, tt.fields, tt.fileName, []byte("%PDF")))
			checkCodeAndData(t, rec, tt.wantCode, tt.wantData)
		})
	}
	assert.Empty(t, app.listMaterials(t, mentorToken))

	t.Run("unassigned", func(t *testing.T) {
		mat := app.uploadMaterial(t, mentorToken, nil, "Cells.pdf", "%PDF cells")

		assert.Equal(t, "Cells.pdf", mat.Name)
		assert.Equal(t, "application/pdf", mat.FileType)
		assert.Equal(t, mentor.ID, mat.MentorID)
		assert.False(t, mat.ClassroomID.Valid)
		assert.True(t, strings.HasPrefix(mat.URL, "/media/"))

		// the file is served back
		rec := app.do(t, http.MethodGet, mat.URL, "", nil)
		require.True(t, checkStatus(t, rec, http.StatusOK))
		assert.Equal(t, "%PDF cells", rec.Body.String())
	})

	t.Run("assigned on upload", func(t *testing.T) {
		mat := app.uploadMaterial(t, mentorToken, map[string]string{"classroom_id": strconv.FormatInt(cls.ID, 10), "name": " Genes "}, "genes.txt", "ATGC")

		assert.Equal(t, "Genes", mat.Name)
		assert.Equal(t, null.Int64From(cls.ID), mat.ClassroomID)

		rec := app.do(t, http.MethodGet, classPath(cls.ID), mentorToken, nil)
		require.True(t, checkStatus(t, rec, http.StatusOK))
		var got classroom.Classroom
		decode(t, rec, &got)
		require.Len(t, got.Materials, 1)
		assert.Equal(t, mat.ID, got.Materials[0].ID)
	})

	assert.Len(t, app.listMaterials(t, mentorToken), 2)
	assert.Empty(t, app.listMaterials(t, app.getToken(t, other)))
}

func Test_materialApi_assign(t *testing.T) {
	app := setup(t)
	mentor := app.createUser(t, "Ada", "ada@elevana.test", user.RoleMentor)
	other := app.createUser(t, "Grace", "grace@elevana.test", user.RoleMentor)
	mentorToken := app.getToken(t, mentor)
	otherToken := app.getToken(t, other)

	cls := app.createClassroom(t, mentorToken, classroom.NewClassroom{Name: "Biology"})
	othersCls := app.createClassroom(t, otherToken, classroom.NewClassroom{Name: "Art"})
	mat1 := app.uploadMaterial(t, mentorToken, nil, "one.pdf", "1")
	mat2 := app.uploadMaterial(t, mentorToken, nil, "two.pdf", "2")
	othersMat := app.uploadMaterial(t, otherToken, nil, "three.pdf", "3")

	t.Run("invalid", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/materials/assign", mentorToken, material.Assignment{IDs: []int64{}})
		checkStatus(t, rec, http.StatusBadRequest)

		rec = app.do(t, http.MethodPost, "/v1/materials/assign", mentorToken, material.Assignment{IDs: []int64{mat1.ID}, ClassroomID: null.Int64From(othersCls.ID)})
		checkCodeAndData(t, rec, http.StatusNotFound, httpErr{Error: classroom.ErrNotFound.Error()})
	})

	t.Run("assign", func(t *testing.T) {
		// materials of other mentors are left alone
		rec := app.do(t, http.MethodPost, "/v1/materials/assign", mentorToken, material.Assignment{
			IDs:         []int64{mat1.ID, mat2.ID, othersMat.ID},
			ClassroomID: null.Int64From(cls.ID),
		})
		require.True(t, checkStatus(t, rec, http.StatusNoContent))

		for _, mat := range app.listMaterials(t, mentorToken) {
			assert.Equal(t, null.Int64From(cls.ID), mat.ClassroomID)
		}
		for _, mat := range app.listMaterials(t, otherToken) {
			assert.False(t, mat.ClassroomID.Valid)
		}
	})

	t.Run("unassign", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/materials/assign", mentorToken, material.Assignment{IDs: []int64{mat2.ID}})
		require.True(t, checkStatus(t, rec, http.StatusNoContent))

		mats := app.listMaterials(t, mentorToken)
		require.Len(t, mats, 2)
		assert.Equal(t, null.Int64From(cls.ID), mats[0].ClassroomID)
		assert.False(t, mats[1].ClassroomID.Valid)
	})
}

func Test_materialApi_destroyMultiple(t *testing.T) {
	app := setup(t)
	mentor := app.createUser(t, "Ada", "ada@elevana.test", user.RoleMentor)
	mentorToken := app.getToken(t, mentor)

	mat1 := app.uploadMaterial(t, mentorToken, nil, "one.pdf", "1")
	mat2 := app.uploadMaterial(t, mentorToken, nil, "two.pdf", "2")
	mat3 := app.uploadMaterial(t, mentorToken, nil, "three.pdf", "3")

	rec := app.do(t, http.MethodDelete, "/v1/materials?id=lol", mentorToken, nil)
	checkCodeAndData(t, rec, http.StatusBadRequest, map[string]string{"id": `invalid id "lol"`})

	path := "/v1/materials?id=" + strconv.FormatInt(mat1.ID, 10) + "," + strconv.FormatInt(mat2.ID, 10)
	rec = app.do(t, http.MethodDelete, path, mentorToken, nil)
	require.True(t, checkStatus(t, rec, http.StatusNoContent))

	mats := app.listMaterials(t, mentorToken)
	require.Len(t, mats, 1)
	assert.Equal(t, mat3.ID, mats[0].ID)

	// stored files are removed with their materials
	rec = app.do(t, http.MethodGet, mat1.URL, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = app.do(t, http.MethodGet, mat3.URL, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
