package loggingmw

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/registry_portal/pkg/logging"
)

func newEcho(buf *bytes.Buffer) *echo.Echo {
	e := echo.New()
	e.Use(RequestLogger(logging.NewWithWriter(buf, "debug")))
	e.GET("/ok", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("inside")
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/denied", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	})
	return e
}

func TestRequestLogger_GeneratesRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rec := httptest.NewRecorder()
	newEcho(&buf).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

	rid := rec.Header().Get(echo.HeaderXRequestID)
	require.NotEmpty(t, rid)
	assert.Contains(t, buf.String(), `"msg":"inside"`)
	assert.Contains(t, buf.String(), `"request_id":"`+rid+`"`)
	assert.Contains(t, buf.String(), `"status":204`)
}

func TestRequestLogger_KeepsIncomingRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-42")
	rec := httptest.NewRecorder()
	newEcho(&buf).ServeHTTP(rec, req)

	assert.Equal(t, "rid-42", rec.Header().Get(echo.HeaderXRequestID))
	assert.Contains(t, buf.String(), `"request_id":"rid-42"`)
}

func TestRequestLogger_RendersErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rec := httptest.NewRecorder()
	newEcho(&buf).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/denied", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"status":403`)
}
