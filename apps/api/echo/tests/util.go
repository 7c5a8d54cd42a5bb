package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/elevana/apps/api/echo"
	"github.com/trezcool/elevana/core"
	"github.com/trezcool/elevana/core/activity"
	"github.com/trezcool/elevana/core/classroom"
	"github.com/trezcool/elevana/core/material"
	"github.com/trezcool/elevana/core/user"
	appfs "github.com/trezcool/elevana/fs"
	emailsvc "github.com/trezcool/elevana/services/email"
	inmemdb "github.com/trezcool/elevana/storage/database/inmem"
	"github.com/trezcool/elevana/storage/media"
	testutil "github.com/trezcool/elevana/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*echoapi.Server
	conf   *core.Config
	repos  inmemdb.Repositories
	mailer *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) testApp {
	conf := testutil.NewConfig(t)
	logger := testutil.NewLogger(t)
	validate, translator := testutil.NewValidator()
	core.ParseEmailTemplates(appfs.FS, logger)

	// set up DB & repos
	repos := inmemdb.NewDB().Repositories()

	// set up services
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)
	matSvc := material.NewService(repos.Materials)
	actSvc := activity.NewService(repos.Activities)
	clsSvc := classroom.NewService(repos.Classrooms, matSvc, actSvc, classroom.Options{
		AppName:         conf.AppName,
		FrontendBaseURL: conf.FrontendBaseURL,
		Mailer:          mailer,
	})
	store, err := media.NewLocalStore(conf.Storage.MediaDir, conf.Storage.MediaURL)
	require.NoError(t, err)

	// set up server
	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        user.NewService(repos.Users),
		ClassroomSvc:   clsSvc,
		MaterialSvc:    matSvc,
		ActivitySvc:    actSvc,
		Media:          store,
		DisableReqLogs: true,
	})
	return testApp{Server: server, conf: conf, repos: repos, mailer: mailer}
}

func (app testApp) createUser(t *testing.T, name, email string, role user.Role) user.User {
	return testutil.CreateUser(t, app.repos.Users, name, email, "Passw0rd!", role)
}

func (app testApp) getToken(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(echoapi.NewClaims(usr, app.conf), app.conf.SecretKey)
	require.NoError(t, err)
	return token
}

// do runs a request through the app; body is JSON encoded unless it is already a *multipartBody.
func (app testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var (
		reader      io.Reader
		contentType = jsonContentType
	)
	switch b := body.(type) {
	case nil:
	case *multipartBody:
		reader, contentType = &b.buf, b.contentType
	case []byte:
		reader = bytes.NewReader(b)
	default:
		reader = bytes.NewReader(marshallObj(t, b))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

const jsonContentType = "application/json"

type httpErr struct {
	Error string `json:"error"`
}

type multipartBody struct {
	buf         bytes.Buffer
	contentType string
}

func newMultipart(t *testing.T, fields map[string]string, fileName string, content []byte) *multipartBody {
	b := new(multipartBody)
	w := multipart.NewWriter(&b.buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	b.contentType = w.FormDataContentType()
	return b
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func checkCodeAndData(t *testing.T, rec *httptest.ResponseRecorder, wantCode int, wantData interface{}) {
	assert.Equal(t, wantCode, rec.Code, rec.Body.String())
	if wantData != nil {
		assert.JSONEq(t, string(marshallObj(t, wantData)), rec.Body.String())
	}
}

func checkStatus(t *testing.T, rec *httptest.ResponseRecorder, wantCode int) bool {
	return assert.Equal(t, wantCode, rec.Code, rec.Body.String())
}
