package kanban

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kyri56xcaesar/kanban/internal/apperr"
	"kyri56xcaesar/kanban/internal/authmw"
	"kyri56xcaesar/kanban/internal/pipeline"
)

// respondError is the single place errors become HTTP responses. Unexpected errors are
// logged and answered with a generic message.
func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	msg := apperr.Message(err)
	if status == http.StatusInternalServerError {
		log.Printf("failed to handle %s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = "internal server error"
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":   http.StatusText(status),
		"message": msg,
		"status":  status,
	})
}

func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		respondError(c, fmt.Errorf("panic: %v", rec))
	})
}

// bind decodes the JSON body into dst, reporting malformed bodies as validation errors.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		log.Printf("failed to bind input: %v", err)
		respondError(c, apperr.Validation("bind", "invalid request body"))
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, apperr.Validation("path", "missing/invalid %s", name))
		return 0, false
	}
	return id, true
}

// caller returns the authenticated user id, zero when there is none. The user
// existence stage rejects zero.
func caller(c *gin.Context) int64 {
	p, _ := authmw.PrincipalFrom(c)
	return p.UserID
}

func actor(c *gin.Context) pipeline.Actor {
	return pipeline.As(caller(c))
}

func created(c *gin.Context, location string, body any) {
	c.Header("Location", location)
	c.JSON(http.StatusCreated, body)
}

func reply(c *gin.Context, body any, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func noContent(c *gin.Context, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
