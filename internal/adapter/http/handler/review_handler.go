package handler

import (
	"escrow-settlement-engine/internal/adapter/http/dto"
	"escrow-settlement-engine/internal/core/domain"
	"escrow-settlement-engine/internal/core/ports"
	"escrow-settlement-engine/pkg/apperror"
	"escrow-settlement-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// ReviewHandler bridges inbound review decisions to the settlement engine.
type ReviewHandler struct {
	reviewSvc ports.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewSvc ports.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewSvc: reviewSvc}
}

// ApplyDecision handles POST /api/v1/reviews.
func (h *ReviewHandler) ApplyDecision(c *gin.Context) {
	var req dto.ReviewDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.reviewSvc.ApplyReviewDecision(c.Request.Context(), ports.ReviewRequest{
		TargetRef:   req.TargetRef,
		DecisionID:  req.DecisionID,
		Decision:    domain.ReviewDecision(req.Decision),
		ReviewerRef: req.ReviewerRef,
		Notes:       req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.ReviewResponse{Outcome: string(result.Outcome)}
	if result.Hold != nil {
		hold := toHoldResponse(result.Hold)
		resp.Hold = &hold
	}
	response.OK(c, resp)
}
