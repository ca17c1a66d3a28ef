package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/school-fee-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestListNilRendersEmptyArrayWithCount(t *testing.T) {
	c, w := newContext()

	List[string](c, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	body := decode(t, w)
	assert.Equal(t, []interface{}{}, body["data"])
	assert.Equal(t, float64(0), body["meta"].(map[string]interface{})["count"])
}

func TestErrorUsesAppErrorStatusAndMeta(t *testing.T) {
	c, w := newContext()

	Error(c, appErrors.Clone(appErrors.ErrNotFound, "Student not found"), map[string]interface{}{"field": "id"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "NOT_FOUND", errBody["code"])
	assert.Equal(t, "Student not found", errBody["message"])
	assert.Equal(t, "id", body["meta"].(map[string]interface{})["field"])
	assert.Nil(t, body["data"])
}

func TestErrorWrapsUnknownErrorsAsInternal(t *testing.T) {
	c, w := newContext()

	Error(c, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, appErrors.ErrInternal.Code, body["error"].(map[string]interface{})["code"])
	assert.Len(t, c.Errors, 1)
}

func TestAttachmentSetsDisposition(t *testing.T) {
	c, w := newContext()

	Attachment(c, "fee-report.csv", "text/csv; charset=utf-8", []byte("a,b\n"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="fee-report.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "a,b\n", w.Body.String())
}
