package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motosaga/moto-saga/internal/model"
	"github.com/motosaga/moto-saga/internal/utils"
)

const testSecret = "test-secret"

func authedRequest(t *testing.T, u *model.User) *http.Request {
	t.Helper()
	access, err := utils.NewAccessToken(testSecret, u, 60)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+access.Token)
	return req
}

func TestJWTAuthInjectsClaims(t *testing.T) {
	e := echo.New()
	user := &model.User{ID: "u1", Email: "asha@example.com", Name: "Asha", Role: model.RoleRider}
	req := authedRequest(t, user)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	next := func(c echo.Context) error {
		called = true
		assert.Equal(t, "u1", c.Get("user_id"))
		assert.Equal(t, "asha@example.com", c.Get("email"))
		assert.Equal(t, "Asha", c.Get("name"))
		assert.Equal(t, "rider", c.Get("role"))
		return c.NoContent(http.StatusOK)
	}
	require.NoError(t, JWTAuth(testSecret)(next)(c))
	assert.True(t, called)
}

func TestJWTAuthRejectsBadTokens(t *testing.T) {
	e := echo.New()
	cases := map[string]string{
		"missing header": "",
		"not bearer":     "Token abc",
		"garbage":        "Bearer not.a.jwt",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			next := func(c echo.Context) error {
				t.Fatal("next should not run")
				return nil
			}
			require.NoError(t, JWTAuth(testSecret)(next)(c))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	e := echo.New()
	user := &model.User{ID: "u1", Role: model.RoleRider}
	access, err := utils.NewAccessToken("other-secret", user, 60)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+access.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error {
		t.Fatal("next should not run")
		return nil
	}
	require.NoError(t, JWTAuth(testSecret)(next)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()
	run := func(role interface{}) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if role != nil {
			c.Set("role", role)
		}
		next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
		require.NoError(t, RequireAdmin()(next)(c))
		return rec
	}

	assert.Equal(t, http.StatusOK, run("admin").Code)

	for _, role := range []interface{}{"rider", "club", "creator", "", nil} {
		rec := run(role)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "Admin access required")
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	mw := RequireRole(model.RoleClub, model.RoleAdmin)
	run := func(role string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set("role", role)
		next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
		require.NoError(t, mw(next)(c))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, run("club"))
	assert.Equal(t, http.StatusOK, run("admin"))
	assert.Equal(t, http.StatusForbidden, run("rider"))
}
