package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/armline-api/internal/logging"
	"github.com/harentsoaR/armline-api/internal/repository"
	"github.com/harentsoaR/armline-api/internal/validator"
)

const msgInternal = "Something went wrong. Please try again."

// log returns the handler logger tagged with the request id.
func (h *Handler) log(c *gin.Context) *zap.Logger {
	return h.Logger.With(zap.String("requestId", c.GetString(logging.RequestIDKey)))
}

// storeError answers with the status matching a repository error. what names
// the document in the user-facing message, e.g. "Report".
func (h *Handler) storeError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	case errors.Is(err, repository.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": what + " already exists"})
	case errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": what + " was changed by someone else. Please reload and try again."})
	default:
		h.internalError(c, err, "store operation failed")
	}
}

func (h *Handler) internalError(c *gin.Context, err error, msg string) {
	h.log(c).Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
}

func validationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  validator.ErrorMessage(err),
		"fields": validator.FieldErrors(err),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// pathID parses the :id parameter. Malformed ids are reported as not found.
func pathID(c *gin.Context, what string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return primitive.NilObjectID, false
	}
	return id, true
}
