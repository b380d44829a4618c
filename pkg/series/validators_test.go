package series

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/johnjclub/johnjclub/pkg/binder"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindSeriesPayload(t *testing.T, payload string, i interface{}) error {
	t.Helper()

	b, err := binder.New()
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(echo.POST, "/", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	return b.Bind(i, c)
}

func TestCreateSeriesPayloadNameLength(t *testing.T) {
	t.Parallel()

	t.Run("accepts a 40 character name", func(tt *testing.T) {
		payload := fmt.Sprintf(`{"name":%q}`, strings.Repeat("a", 40))
		p := CreateSeriesPayload{}
		err := bindSeriesPayload(tt, payload, &p)
		assert.NoError(tt, err)
	})

	t.Run("rejects a 41 character name", func(tt *testing.T) {
		payload := fmt.Sprintf(`{"name":%q}`, strings.Repeat("a", 41))
		p := CreateSeriesPayload{}
		err := bindSeriesPayload(tt, payload, &p)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), "length must be less than or equal to 40 characters")
	})
}

func TestUpdateSeriesPayloadNameLength(t *testing.T) {
	t.Parallel()

	payload := fmt.Sprintf(`{"name":%q}`, strings.Repeat("a", 41))
	p := UpdateSeriesPayload{}
	err := bindSeriesPayload(t, payload, &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "length must be less than or equal to 40 characters")
}
