package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fee-api/internal/middleware"
	"github.com/noah-isme/school-fee-api/internal/models"
	"github.com/noah-isme/school-fee-api/internal/service"
	appErrors "github.com/noah-isme/school-fee-api/pkg/errors"
	"github.com/noah-isme/school-fee-api/pkg/response"
)

const queryDateLayout = "2006-01-02"

func sessionFromContext(c *gin.Context) (models.Session, bool) {
	claims, ok := middleware.Claims(c)
	if !ok {
		return models.Session{}, false
	}
	return claims.Session(), true
}

// renderError writes err and attaches the failing field or batch outcome as meta.
func renderError(c *gin.Context, err error) {
	if vErr, ok := service.AsValidationError(err); ok {
		response.Error(c, err, map[string]interface{}{"field": vErr.Field})
		return
	}
	var batchErr *service.BatchError
	if errors.As(err, &batchErr) {
		response.Error(c, batchErr.Err, map[string]interface{}{
			"failed_index": batchErr.FailedIndex,
			"rolled_back":  nonNil(batchErr.RolledBack),
			"committed":    nonNil(batchErr.Committed),
		})
		return
	}
	response.Error(c, err)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

// queryDate parses an optional YYYY-MM-DD query parameter. endOfDay moves the
// result to the last instant of that day so ranges stay inclusive.
func queryDate(c *gin.Context, key string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(queryDateLayout, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be formatted as YYYY-MM-DD")
	}
	if endOfDay {
		t = models.EndOfDay(t)
	}
	return &t, nil
}
