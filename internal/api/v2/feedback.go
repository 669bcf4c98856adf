// internal/api/v2/feedback.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wildcam-go/wildcam/internal/datastore"
	"github.com/wildcam-go/wildcam/internal/detection"
	"github.com/wildcam-go/wildcam/internal/logger"
	"github.com/wildcam-go/wildcam/internal/validation"
)

// initFeedbackRoutes registers the detection feedback endpoints
func (c *Controller) initFeedbackRoutes() {
	c.Group.GET("/feedback/options", c.GetFeedbackOptions)
	c.Group.POST("/detections/:id/feedback", c.SubmitFeedback)
	c.Group.GET("/detections/:id/feedback", c.ListFeedback)
}

// FeedbackRequest is the body of POST /detections/:id/feedback.
type FeedbackRequest struct {
	Kind           string `json:"kind" validate:"required,feedbackkind"`
	SuggestedClass string `json:"suggestedClass" validate:"required_if=Kind wrong_class,max=128"`
	Comment        string `json:"comment" validate:"max=1000"`
}

// FeedbackOptionsResponse lists the choices offered by a feedback form.
type FeedbackOptionsResponse struct {
	Kinds         []detection.FeedbackKind `json:"kinds"`
	AnimalClasses []string                 `json:"animalClasses"`
}

// GetFeedbackOptions handles GET /api/v2/feedback/options
func (c *Controller) GetFeedbackOptions(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, FeedbackOptionsResponse{
		Kinds:         detection.FeedbackKinds(),
		AnimalClasses: detection.CommonAnimalClasses,
	})
}

// SubmitFeedback handles POST /api/v2/detections/:id/feedback
func (c *Controller) SubmitFeedback(ctx echo.Context) error {
	var req FeedbackRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid feedback body", http.StatusBadRequest)
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		return c.HandleError(ctx, verr, verr.ToAPIError().Message, http.StatusBadRequest)
	}

	submission := &detection.FeedbackSubmission{
		DetectionID:    ctx.Param("id"),
		Kind:           detection.FeedbackKind(req.Kind),
		SuggestedClass: req.SuggestedClass,
		Comment:        req.Comment,
	}

	fb, err := c.DS.SaveFeedback(ctx.Request().Context(), submission)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to save feedback")
	}

	if c.metrics != nil {
		c.metrics.HTTP.RecordFeedbackSubmission(string(fb.Kind))
	}
	c.logger.Info("feedback received",
		logger.String("detection_id", fb.DetectionID),
		logger.String("feedback_id", fb.ID),
		logger.String("kind", string(fb.Kind)))

	if c.notifier != nil {
		// Delivery failures do not undo the stored feedback.
		if err := c.notifier.NotifyFeedback(ctx.Request().Context(), fb); err != nil {
			c.logger.Warn("failed to forward feedback",
				logger.String("feedback_id", fb.ID),
				logger.Error(err))
		}
	}

	return ctx.JSON(http.StatusCreated, fb)
}

// ListFeedback handles GET /api/v2/detections/:id/feedback
func (c *Controller) ListFeedback(ctx echo.Context) error {
	id := ctx.Param("id")
	reqCtx := ctx.Request().Context()

	if _, err := c.DS.Get(reqCtx, id); err != nil {
		return c.handleStoreError(ctx, err, "Detection not found")
	}

	list, err := c.DS.ListFeedback(reqCtx, id)
	if err != nil {
		return c.handleStoreError(ctx, err, "Failed to list feedback")
	}
	if list == nil {
		list = []datastore.Feedback{}
	}
	return ctx.JSON(http.StatusOK, list)
}
