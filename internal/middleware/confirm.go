package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/school-fee-api/pkg/errors"
	"github.com/noah-isme/school-fee-api/pkg/response"
)

// ConfirmParam is the query parameter destructive requests must set to true.
const ConfirmParam = "confirm"

// ConfirmDelete rejects deletes that were not explicitly confirmed by the
// caller with ?confirm=true.
func ConfirmDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		confirmed, _ := strconv.ParseBool(c.Query(ConfirmParam))
		if !confirmed {
			response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "Are you sure? Repeat the request with confirm=true"))
			c.Abort()
			return
		}
		c.Next()
	}
}
