package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appErrors "github.com/scolaris/scolaris/pkg/errors"
)

func record(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(c)
	return w
}

func TestSuccessEnvelope(t *testing.T) {
	w := record(func(c *gin.Context) {
		Success(c, http.StatusCreated, gin.H{"id": "p-1"})
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Nil(t, body.Error)
}

func TestErrorEnvelopeFromAppError(t *testing.T) {
	w := record(func(c *gin.Context) {
		Error(c, appErrors.ErrDuplicateOverride.WithMessage("already overridden"))
	})

	require.Equal(t, http.StatusConflict, w.Code)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Equal(t, "DUPLICATE_OVERRIDE", body.Error.Code)
	require.Equal(t, "already overridden", body.Error.Message)
}

func TestErrorEnvelopeFromPlainError(t *testing.T) {
	w := record(func(c *gin.Context) {
		Error(c, http.ErrHandlerTimeout)
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "INTERNAL_SERVER_ERROR", body.Error.Code)
}
