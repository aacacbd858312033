package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createEventCtx(e *echo.Echo, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "admin-1")
	c.Set("role", "admin")
	return c, rec
}

func TestCreateEventValidation(t *testing.T) {
	e := echo.New()
	h := &EventHandler{}

	cases := map[string]struct {
		body string
		want string
	}{
		"missing fields": {
			body: `{"title":"Track Day"}`,
			want: "Missing required fields",
		},
		"bad date": {
			body: `{"title":"Track Day","description":"d","date":"next tuesday","location":"Kari"}`,
			want: "invalid date",
		},
		"bad event type": {
			body: `{"title":"Track Day","description":"d","date":"2026-10-04T09:00:00Z","location":"Kari","eventType":"regatta"}`,
			want: "invalid event type",
		},
		"negative price": {
			body: `{"title":"Track Day","description":"d","date":"2026-10-04T09:00:00Z","location":"Kari","ticketPrice":-5}`,
			want: "invalid capacity or price",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c, rec := createEventCtx(e, tc.body)
			require.NoError(t, h.Create(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestCreateEventRequiresAuth(t *testing.T) {
	e := echo.New()
	h := &EventHandler{}
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	require.NoError(t, h.Create(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
