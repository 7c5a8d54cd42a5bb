package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elevana/core"
	"github.com/trezcool/elevana/core/activity"
	"github.com/trezcool/elevana/core/classroom"
	"github.com/trezcool/elevana/core/material"
	"github.com/trezcool/elevana/core/user"
)

type Options struct {
	BaseURL    string // e.g. http://localhost:8000/v1
	Timeout    time.Duration
	HTTPClient *http.Client
	Session    *Session
}

// OptionsFromConfig reads the client section of conf.
func OptionsFromConfig(conf *core.Config, session *Session) Options {
	return Options{BaseURL: conf.Client.BaseURL, Timeout: conf.Client.Timeout, Session: session}
}

// API is the HTTP client of the Elevana API. Calls needing auth fail with ErrNoSession,
// before any I/O, when the session holds no valid token.
type API struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	session    *Session
}

var (
	_ ClassBackend      = (*API)(nil)
	_ MaterialBackend   = (*API)(nil)
	_ ProgressBackend   = (*API)(nil)
	_ activity.Uploader = (*API)(nil)
)

func New(opts Options) (*API, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("client: base url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.Wrap(err, "client: parsing base url")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	session := opts.Session
	if session == nil {
		session = NewSession()
	}
	return &API{baseURL: baseURL, timeout: timeout, httpClient: httpClient, session: session}, nil
}

func (api *API) Session() *Session { return api.session }

// UploadProgress is reported while a multipart body is being sent.
type UploadProgress struct {
	Sent  int64
	Total int64
}

func (p UploadProgress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return 100 * float64(p.Sent) / float64(p.Total)
}

type tokenResponse struct {
	Token string        `json:"token"`
	User  *user.Profile `json:"user,omitempty"`
}

// Users

// Login authenticates and starts the session with the returned token.
func (api *API) Login(ctx context.Context, email, password string) (user.Profile, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(email, "email"),
		vala.StringNotEmpty(password, "password"),
	).Check(); err != nil {
		return user.Profile{}, err
	}
	body := map[string]string{"email": email, "password": password}
	return api.startSession(ctx, "/users/login", body)
}

// Register creates an account and starts its session.
func (api *API) Register(ctx context.Context, nu user.NewUser) (user.Profile, error) {
	return api.startSession(ctx, "/users/register", nu)
}

func (api *API) startSession(ctx context.Context, path string, body interface{}) (user.Profile, error) {
	var resp tokenResponse
	if err := api.doJSON(ctx, http.MethodPost, path, "", body, &resp); err != nil {
		return user.Profile{}, err
	}
	if _, err := api.session.Start(resp.Token); err != nil {
		return user.Profile{}, err
	}
	if resp.User == nil {
		return user.Profile{}, nil
	}
	return *resp.User, nil
}

// RefreshToken swaps the session token for a fresh one.
func (api *API) RefreshToken(ctx context.Context) error {
	var resp tokenResponse
	if err := api.authJSON(ctx, http.MethodPost, "/users/token-refresh", nil, &resp); err != nil {
		return err
	}
	_, err := api.session.Start(resp.Token)
	return err
}

// Classrooms

func (api *API) ListClassrooms(ctx context.Context) ([]classroom.Classroom, error) {
	var classes []classroom.Classroom
	err := api.authJSON(ctx, http.MethodGet, "/classrooms", nil, &classes)
	return classes, err
}

func (api *API) GetClassroom(ctx context.Context, id int64) (classroom.Classroom, error) {
	var cls classroom.Classroom
	if err := checkIDs("id", id); err != nil {
		return cls, err
	}
	err := api.authJSON(ctx, http.MethodGet, classroomPath(id), nil, &cls)
	return cls, err
}

func (api *API) CreateClassroom(ctx context.Context, nc classroom.NewClassroom) (classroom.Classroom, error) {
	var cls classroom.Classroom
	if err := vala.BeginValidation().Validate(vala.StringNotEmpty(strings.TrimSpace(nc.Name), "name")).Check(); err != nil {
		return cls, err
	}
	err := api.authJSON(ctx, http.MethodPost, "/classrooms", nc, &cls)
	return cls, err
}

func (api *API) UpdateClassroom(ctx context.Context, id int64, uc classroom.UpdateClassroom) (classroom.Classroom, error) {
	var cls classroom.Classroom
	if err := vala.BeginValidation().Validate(
		positive(id, "id"),
		vala.StringNotEmpty(strings.TrimSpace(uc.Name), "name"),
	).Check(); err != nil {
		return cls, err
	}
	err := api.authJSON(ctx, http.MethodPut, classroomPath(id), uc, &cls)
	return cls, err
}

func (api *API) DeleteClassroom(ctx context.Context, id int64) error {
	if err := checkIDs("id", id); err != nil {
		return err
	}
	return api.authJSON(ctx, http.MethodDelete, classroomPath(id), nil, nil)
}

func (api *API) RemoveStudent(ctx context.Context, classroomID int64, studentID string) error {
	if err := vala.BeginValidation().Validate(
		positive(classroomID, "classroomID"),
		vala.StringNotEmpty(studentID, "studentID"),
	).Check(); err != nil {
		return err
	}
	return api.authJSON(ctx, http.MethodDelete, classroomPath(classroomID)+"/students/"+url.PathEscape(studentID), nil, nil)
}

func (api *API) UnassignActivity(ctx context.Context, classroomID, activityID int64) error {
	if err := vala.BeginValidation().Validate(
		positive(classroomID, "classroomID"),
		positive(activityID, "activityID"),
	).Check(); err != nil {
		return err
	}
	return api.authJSON(ctx, http.MethodDelete, classroomPath(classroomID)+"/activities/"+strconv.FormatInt(activityID, 10), nil, nil)
}

// JoinClassroom joins the classroom with the given class code (students only).
func (api *API) JoinClassroom(ctx context.Context, code string) (classroom.Classroom, error) {
	var cls classroom.Classroom
	code = classroom.NormalizeClassCode(code)
	if err := vala.BeginValidation().Validate(vala.StringNotEmpty(code, "code")).Check(); err != nil {
		return cls, err
	}
	err := api.authJSON(ctx, http.MethodPost, "/classrooms/join", classroom.JoinRequest{ClassCode: code}, &cls)
	return cls, err
}

func classroomPath(id int64) string {
	return "/classrooms/" + strconv.FormatInt(id, 10)
}

// Materials

func (api *API) ListMaterials(ctx context.Context) ([]material.Material, error) {
	var mats []material.Material
	err := api.authJSON(ctx, http.MethodGet, "/materials", nil, &mats)
	return mats, err
}

// UploadMaterial uploads a file, assigned to classroomID unless it is null.
func (api *API) UploadMaterial(ctx context.Context, fileName string, r io.Reader, classroomID null.Int64, onProgress func(UploadProgress)) (material.Material, error) {
	var mat material.Material
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(fileName, "fileName"),
		notNil(r != nil, "r"),
	).Check(); err != nil {
		return mat, err
	}
	fields := map[string]string{}
	if classroomID.Valid {
		if err := checkIDs("classroomID", classroomID.Int64); err != nil {
			return mat, err
		}
		fields["classroom_id"] = strconv.FormatInt(classroomID.Int64, 10)
	}
	err := api.upload(ctx, "/materials", fields, fileName, r, onProgress, &mat)
	return mat, err
}

func (api *API) DeleteMaterials(ctx context.Context, ids []int64) error {
	if err := checkIDs("ids", ids...); err != nil {
		return err
	}
	q := make(url.Values)
	for _, id := range ids {
		q.Add("id", strconv.FormatInt(id, 10))
	}
	return api.authJSON(ctx, http.MethodDelete, "/materials?"+q.Encode(), nil, nil)
}

// AssignMaterials moves materials to classroomID, or unassigns them when it is null.
func (api *API) AssignMaterials(ctx context.Context, ids []int64, classroomID null.Int64) error {
	if err := checkIDs("ids", ids...); err != nil {
		return err
	}
	if classroomID.Valid {
		if err := checkIDs("classroomID", classroomID.Int64); err != nil {
			return err
		}
	}
	return api.authJSON(ctx, http.MethodPost, "/materials/assign", material.Assignment{IDs: ids, ClassroomID: classroomID}, nil)
}

// Activities

type UploadActivityResponse struct {
	Activity activity.Summary `json:"activity"`
	Warnings []string         `json:"warnings"`
}

// UploadActivity uploads an activity CSV to one classroom.
func (api *API) UploadActivity(ctx context.Context, data []byte, kind activity.Kind, fileName string, classroomID int64) (UploadActivityResponse, error) {
	var resp UploadActivityResponse
	if err := vala.BeginValidation().Validate(
		positive(classroomID, "classroomID"),
		vala.StringNotEmpty(fileName, "fileName"),
		vala.StringNotEmpty(string(kind), "kind"),
	).Check(); err != nil {
		return resp, err
	}
	fields := map[string]string{
		"type":         string(kind),
		"classroom_id": strconv.FormatInt(classroomID, 10),
	}
	err := api.upload(ctx, "/activities/upload", fields, fileName, bytes.NewReader(data), nil, &resp)
	return resp, err
}

func (api *API) UploadActivityCSV(ctx context.Context, data []byte, kind activity.Kind, fileName string, classroomID int64) error {
	_, err := api.UploadActivity(ctx, data, kind, fileName, classroomID)
	return err
}

// Students

func (api *API) GetStudentProfile(ctx context.Context) (user.Profile, error) {
	var profile user.Profile
	err := api.authJSON(ctx, http.MethodGet, "/students/me", nil, &profile)
	return profile, err
}

func (api *API) AwardXP(ctx context.Context, amount int) (user.Profile, error) {
	var profile user.Profile
	if err := vala.BeginValidation().Validate(positive(int64(amount), "amount")).Check(); err != nil {
		return profile, err
	}
	err := api.authJSON(ctx, http.MethodPost, "/students/me/xp", user.XPReward{Amount: amount}, &profile)
	return profile, err
}

// HTTP helpers

func (api *API) authJSON(ctx context.Context, method, path string, in, out interface{}) error {
	token, err := api.session.Token()
	if err != nil {
		return err
	}
	return api.doJSON(ctx, method, path, token, in, out)
}

func (api *API) doJSON(ctx context.Context, method, path, token string, in, out interface{}) error {
	var buf bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return errors.Wrap(err, "encoding request")
		}
	}
	return api.do(ctx, method, path, token, "application/json", &buf, int64(buf.Len()), out)
}

func (api *API) upload(ctx context.Context, path string, fields map[string]string, fileName string, r io.Reader, onProgress func(UploadProgress), out interface{}) error {
	token, err := api.session.Token()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err = w.WriteField(k, v); err != nil {
			return errors.Wrap(err, "writing multipart field")
		}
	}
	fw, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return errors.Wrap(err, "creating multipart file")
	}
	if _, err = io.Copy(fw, r); err != nil {
		return errors.Wrap(err, "reading upload")
	}
	if err = w.Close(); err != nil {
		return errors.Wrap(err, "closing multipart body")
	}

	total := int64(buf.Len())
	var body io.Reader = &buf
	if onProgress != nil {
		body = &progressReader{r: &buf, total: total, report: onProgress}
	}
	return api.do(ctx, http.MethodPost, path, token, w.FormDataContentType(), body, total, out)
}

func (api *API) do(ctx context.Context, method, path, token, contentType string, body io.Reader, size int64, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, api.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, api.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := api.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return parseHTTPError(resp.StatusCode, raw)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decoding response")
}

type progressReader struct {
	r      io.Reader
	sent   int64
	total  int64
	report func(UploadProgress)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.sent += int64(n)
		pr.report(UploadProgress{Sent: pr.sent, Total: pr.total})
	}
	return n, err
}

// Argument checks

func positive(id int64, name string) vala.Checker {
	return func() (bool, string) {
		if id > 0 {
			return true, ""
		}
		return false, "parameter " + name + " must be a positive id, got " + strconv.FormatInt(id, 10)
	}
}

func notNil(ok bool, name string) vala.Checker {
	return func() (bool, string) {
		if ok {
			return true, ""
		}
		return false, "parameter " + name + " must not be nil"
	}
}

func checkIDs(name string, ids ...int64) error {
	if len(ids) == 0 {
		return errors.Errorf("parameter %s must not be empty", name)
	}
	checks := make([]vala.Checker, 0, len(ids))
	for _, id := range ids {
		checks = append(checks, positive(id, name))
	}
	return vala.BeginValidation().Validate(checks...).Check()
}
