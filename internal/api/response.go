package api

import (
	"net/http"
	"runtime/debug"

	"commerce-service/internal/apperr"
	"commerce-service/internal/resource"
	"commerce-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

func respondList(c *gin.Context, result *resource.ListResult) {
	c.JSON(http.StatusOK, gin.H{
		"status":           statusSuccess,
		"results":          len(result.Documents),
		"paginationResult": result.Pagination,
		"data":             gin.H{"documents": result.Documents},
	})
}

func respondData(c *gin.Context, status int, doc interface{}) {
	c.JSON(status, gin.H{
		"status": statusSuccess,
		"data":   doc,
	})
}

// respondError renders an error per the configured posture. Operational
// errors always surface their message; anything else is logged and, in
// production, collapsed to a generic failure. Development mode additionally
// exposes the underlying error and a stack.
func respondError(c *gin.Context, err error, devMode bool) {
	kind := apperr.KindOf(err)
	httpStatus := kind.HTTPStatus()

	status := statusError
	if httpStatus < http.StatusInternalServerError {
		status = statusFail
	}

	if devMode {
		c.JSON(httpStatus, gin.H{
			"status":  status,
			"message": err.Error(),
			"error":   err.Error(),
			"stack":   string(debug.Stack()),
		})
		return
	}

	if apperr.IsOperational(err) {
		c.JSON(httpStatus, gin.H{
			"status":  status,
			"message": err.Error(),
		})
		return
	}

	util.GetLogger().Error("unclassified error",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"status":  statusError,
		"message": "Something went wrong",
	})
}
