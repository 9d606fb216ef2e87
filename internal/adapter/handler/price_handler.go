package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Tamerlan-hash/diploma-backend/internal/core/domain"
	"github.com/Tamerlan-hash/diploma-backend/internal/core/service/pricing"
)

type PriceHandler struct {
	engine *pricing.Engine
}

func NewPriceHandler(engine *pricing.Engine) *PriceHandler {
	return &PriceHandler{engine: engine}
}

type PricePreviewRequest struct {
	SpotID    string    `json:"spot_id" binding:"required,uuid"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	UserID    string    `json:"user_id" binding:"omitempty,uuid"`
}

type priceSegmentResponse struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Rule       string    `json:"rule"`
	HourlyRate string    `json:"hourly_rate"`
	Cost       string    `json:"cost"`
}

type pricePreviewResponse struct {
	Total           string                 `json:"total"`
	Currency        string                 `json:"currency"`
	DiscountPercent string                 `json:"discount_percent"`
	Segments        []priceSegmentResponse `json:"segments"`
}

func (h *PriceHandler) PreviewPrice(c *gin.Context) {
	var req PricePreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spotID, _ := uuid.Parse(req.SpotID)

	var userID *uuid.UUID
	if req.UserID != "" {
		id, _ := uuid.Parse(req.UserID)
		userID = &id
	}

	result, err := h.engine.ComputePrice(c.Request.Context(), spotID, req.StartTime.UTC(), req.EndTime.UTC(), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInterval):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrUnknownSpot):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pricing temporarily unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute price"})
		}
		return
	}

	resp := pricePreviewResponse{
		Total:           result.Total.StringFixed(2),
		Currency:        result.Currency,
		DiscountPercent: result.DiscountPercent.String(),
		Segments:        make([]priceSegmentResponse, 0, len(result.Segments)),
	}
	for _, seg := range result.Segments {
		resp.Segments = append(resp.Segments, priceSegmentResponse{
			Start:      seg.Start,
			End:        seg.End,
			Rule:       seg.RuleRef(),
			HourlyRate: seg.Rate.StringFixed(2),
			Cost:       seg.Cost.String(),
		})
	}

	c.JSON(http.StatusOK, resp)
}
