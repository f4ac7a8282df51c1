package handlers

import (
	"errors"
	"log"
	"net/http"

	"crosspoll/internal/services"

	"github.com/gin-gonic/gin"
)

// JSONError maps service errors onto HTTP responses with a machine-readable
// kind and a human message. Unexpected errors are logged and become a generic
// server fault; they never crash the request loop.
func JSONError(c *gin.Context, err error) {
	var (
		validationErr *services.ValidationError
		paramErr      *services.InvalidParameterError
		crossRefErr   *services.InvalidCrossRefError
		votedErr      *services.AlreadyVotedError
	)

	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"kind":  "not_found",
			"error": "not found",
		})
	case errors.Is(err, services.ErrInvalidAnswer):
		c.JSON(http.StatusBadRequest, gin.H{
			"kind":  "invalid_answer",
			"error": err.Error(),
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"kind":  "validation_error",
			"error": validationErr.Msg,
		})
	case errors.As(err, &paramErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"kind":  "invalid_parameter",
			"param": paramErr.Param,
			"error": paramErr.Error(),
		})
	case errors.As(err, &crossRefErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"kind":  "invalid_cross_reference",
			"error": crossRefErr.Error(),
		})
	case errors.As(err, &votedErr):
		c.JSON(http.StatusConflict, gin.H{
			"kind":  "already_voted",
			"error": votedErr.Error(),
			"vote": gin.H{
				"poll_id":   votedErr.Existing.PollID,
				"answer_id": votedErr.Existing.AnswerID,
			},
		})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"kind":  "internal_error",
			"error": "internal server error",
		})
	}
}
