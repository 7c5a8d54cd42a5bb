package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/elevana/apps/api/echo"
	"github.com/trezcool/elevana/core/user"
)

type httpTest struct {
	name     string
	body     interface{}
	token    string
	wantCode int
	wantData interface{}
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	mentor := app.createUser(t, "Ada", "ada@elevana.test", user.RoleMentor)

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: map[string]string{"email": reqMsg, "password": reqMsg},
		},
		{
			name: "unknown email", body: echoapi.LoginRequest{Email: "lol@elevana.test", Password: "Passw0rd!"},
			wantCode: http.StatusBadRequest, wantData: httpErr{Error: "authentication failed"},
		},
		{
			name: "wrong password", body: echoapi.LoginRequest{Email: mentor.Email, Password: "lol"},
			wantCode: http.StatusBadRequest, wantData: httpErr{Error: "authentication failed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, "/v1/users/login", "", tt.body)
			checkCodeAndData(t, rec, tt.wantCode, tt.wantData)
		})
	}

	t.Run("success", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/users/login", "", echoapi.LoginRequest{Email: " ADA@elevana.test ", Password: "Passw0rd!"})
		require.True(t, checkStatus(t, rec, http.StatusOK))

		var resp echoapi.TokenResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		require.NotNil(t, resp.User)
		assert.Equal(t, mentor.Profile(), *resp.User)

		usr, err := app.repos.Users.GetUser(context.Background(), user.GetFilter{ID: mentor.ID})
		require.NoError(t, err)
		assert.True(t, usr.LastLogin.Valid)
	})
}

func Test_userApi_register(t *testing.T) {
	app := setup(t)
	existing := app.createUser(t, "Ada", "ada@elevana.test", user.RoleMentor)

	newUser := func(name, email, pwd string, role user.Role) user.NewUser {
		return user.NewUser{Name: name, Email: email, Password: pwd, PasswordConfirm: pwd, Role: role}
	}
	tests := []httpTest{
		{
			name: "invalid role", body: newUser("Bob", "bob@elevana.test", "Sup3rS3cret", "admin"),
			wantCode: http.StatusBadRequest, wantData: map[string]string{"role": "role must be one of mentor, student"},
		},
		{
			name: "invalid pwd: min len", body: newUser("Bob", "bob@elevana.test", "lol", user.RoleStudent),
			wantCode: http.StatusBadRequest, wantData: map[string]string{"password": "password must contain at least 8 characters"},
		},
		{
			name: "invalid pwd: not all numeric", body: newUser("Bob", "bob@elevana.test", "12345678", user.RoleStudent),
			wantCode: http.StatusBadRequest, wantData: map[string]string{"password": "password cannot be entirely numeric"},
		},
		{
			name: "invalid pwd: too similar", body: newUser("Bob", "bob.marley@elevana.test", "bob.marley@elevana", user.RoleStudent),
			wantCode: http.StatusBadRequest, wantData: map[string]string{"password": "password cannot be similar to user attributes"},
		},
		{
			name: "email exists", body: newUser("Bob", existing.Email, "Sup3rS3cret", user.RoleStudent),
			wantCode: http.StatusBadRequest, wantData: map[string]string{"email": user.ErrEmailExists.Error()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, "/v1/users/register", "", tt.body)
			checkCodeAndData(t, rec, tt.wantCode, tt.wantData)
		})
	}

	t.Run("success", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/users/register", "", newUser(" Bob ", "Bob@Elevana.test", "Sup3rS3cret", "STUDENT"))
		require.True(t, checkStatus(t, rec, http.StatusCreated))

		var resp echoapi.TokenResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		require.NotNil(t, resp.User)
		assert.Equal(t, "Bob", resp.User.Name)
		assert.Equal(t, "bob@elevana.test", resp.User.Email)
		assert.Equal(t, user.RoleStudent, resp.User.Role)
		assert.Zero(t, resp.User.XP)
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)
	student := app.createUser(t, "Hero", "hero@elevana.test", user.RoleStudent)

	unrefreshable := echoapi.NewClaims(student, app.conf, time.Now().Add(-2*app.conf.Server.JWTRefreshExpirationDelta).Unix())
	unrefreshableToken, err := echoapi.GenerateToken(unrefreshable, app.conf.SecretKey)
	require.NoError(t, err)

	badSig, err := jwt.NewWithClaims(jwt.SigningMethodHS256, echoapi.NewClaims(student, app.conf)).SignedString([]byte("lol"))
	require.NoError(t, err)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: errMissingToken},
		{name: "invalid signature", token: badSig, wantCode: http.StatusUnauthorized},
		{name: "refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: httpErr{Error: "refresh has expired"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, "/v1/users/token-refresh", tt.token, nil)
			checkCodeAndData(t, rec, tt.wantCode, tt.wantData)
		})
	}

	t.Run("token refreshed", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/users/token-refresh", app.getToken(t, student), nil)
		require.True(t, checkStatus(t, rec, http.StatusOK))

		// cannot guess the new token.. just check that it's not empty
		var resp echoapi.TokenResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
	})
}
