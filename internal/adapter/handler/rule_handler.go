package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Tamerlan-hash/diploma-backend/internal/core/domain"
	"github.com/Tamerlan-hash/diploma-backend/internal/core/service"
)

type RuleHandler struct {
	svc *service.RuleService
}

func NewRuleHandler(svc *service.RuleService) *RuleHandler {
	return &RuleHandler{svc: svc}
}

type CreateZoneRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *RuleHandler) CreateZone(c *gin.Context) {
	var req CreateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	zone, err := h.svc.CreateZone(c.Request.Context(), req.Name)
	if err != nil {
		writeRuleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": zone.ID, "name": zone.Name, "created_at": zone.CreatedAt})
}

func (h *RuleHandler) ListZones(c *gin.Context) {
	zones, err := h.svc.ListZones(c.Request.Context())
	if err != nil {
		writeRuleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"zones": zones})
}

type CreateSpotRequest struct {
	ZoneID string `json:"zone_id" binding:"required,uuid"`
	Name   string `json:"name" binding:"required"`
}

func (h *RuleHandler) CreateSpot(c *gin.Context) {
	var req CreateSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	zoneID, _ := uuid.Parse(req.ZoneID)
	spot, err := h.svc.CreateSpot(c.Request.Context(), zoneID, req.Name)
	if err != nil {
		writeRuleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": spot.ID, "zone_id": spot.ZoneID, "name": spot.Name})
}

type CreateRuleRequest struct {
	Name         string     `json:"name" binding:"required"`
	ZoneID       string     `json:"zone_id" binding:"required,uuid"`
	SpotID       string     `json:"spot_id" binding:"omitempty,uuid"`
	PricePerHour string     `json:"price_per_hour" binding:"required"`
	Priority     int        `json:"priority"`
	TimePeriod   string     `json:"time_period" binding:"required"`
	CustomStart  string     `json:"custom_start" binding:"omitempty"`
	CustomEnd    string     `json:"custom_end" binding:"omitempty"`
	DayType      string     `json:"day_type" binding:"required"`
	CustomDays   []int      `json:"custom_days" binding:"omitempty,dive,min=1,max=7"`
	ValidFrom    *time.Time `json:"valid_from"`
	ValidTo      *time.Time `json:"valid_to"`
}

func (h *RuleHandler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd, err := ruleCommandFromRequest(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.svc.CreateRule(c.Request.Context(), cmd)
	if err != nil {
		writeRuleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         rule.ID,
		"name":       rule.Name,
		"priority":   rule.Priority,
		"created_at": rule.CreatedAt,
	})
}

type UpdateRuleRequest struct {
	Name         string     `json:"name" binding:"required"`
	PricePerHour string     `json:"price_per_hour" binding:"required"`
	Priority     int        `json:"priority"`
	TimePeriod   string     `json:"time_period" binding:"required"`
	CustomStart  string     `json:"custom_start" binding:"omitempty"`
	CustomEnd    string     `json:"custom_end" binding:"omitempty"`
	DayType      string     `json:"day_type" binding:"required"`
	CustomDays   []int      `json:"custom_days" binding:"omitempty,dive,min=1,max=7"`
	ValidFrom    *time.Time `json:"valid_from"`
	ValidTo      *time.Time `json:"valid_to"`
	IsActive     *bool      `json:"is_active"`
}

func (h *RuleHandler) UpdateRule(c *gin.Context) {
	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price, err := decimal.NewFromString(req.PricePerHour)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid price_per_hour: %v", err)})
		return
	}

	period, days, err := parsePeriodAndDays(req.TimePeriod, req.CustomStart, req.CustomEnd, req.DayType, req.CustomDays)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := service.UpdateRuleCommand{
		RuleID:       ruleID,
		Name:         req.Name,
		PricePerHour: price,
		Priority:     req.Priority,
		Period:       period,
		Days:         days,
		ValidFrom:    req.ValidFrom,
		ValidTo:      req.ValidTo,
		IsActive:     true,
	}
	if req.IsActive != nil {
		cmd.IsActive = *req.IsActive
	}

	rule, err := h.svc.UpdateRule(c.Request.Context(), cmd)
	if err != nil {
		writeRuleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         rule.ID,
		"name":       rule.Name,
		"priority":   rule.Priority,
		"created_at": rule.CreatedAt,
	})
}

func (h *RuleHandler) DeleteRule(c *gin.Context) {
	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	if err := h.svc.DeleteRule(c.Request.Context(), ruleID); err != nil {
		writeRuleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *RuleHandler) ListRules(c *gin.Context) {
	zoneID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid zone id"})
		return
	}

	rules, err := h.svc.ListRules(c.Request.Context(), zoneID)
	if err != nil {
		writeRuleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func ruleCommandFromRequest(req CreateRuleRequest) (service.CreateRuleCommand, error) {
	price, err := decimal.NewFromString(req.PricePerHour)
	if err != nil {
		return service.CreateRuleCommand{}, fmt.Errorf("invalid price_per_hour: %v", err)
	}

	zoneID, _ := uuid.Parse(req.ZoneID)

	cmd := service.CreateRuleCommand{
		Name:         req.Name,
		ZoneID:       zoneID,
		PricePerHour: price,
		Priority:     req.Priority,
		ValidFrom:    req.ValidFrom,
		ValidTo:      req.ValidTo,
	}
	if req.SpotID != "" {
		id, _ := uuid.Parse(req.SpotID)
		cmd.SpotID = &id
	}

	cmd.Period, cmd.Days, err = parsePeriodAndDays(req.TimePeriod, req.CustomStart, req.CustomEnd, req.DayType, req.CustomDays)
	if err != nil {
		return service.CreateRuleCommand{}, err
	}

	return cmd, nil
}

func parsePeriodAndDays(timePeriod, customStart, customEnd, dayType string, customDays []int) (domain.TimePeriod, domain.DayType, error) {
	period := domain.TimePeriod{Kind: domain.PeriodKind(timePeriod)}
	if period.Kind == domain.PeriodCustom {
		var err error
		if period.Start, err = parseClock(customStart); err != nil {
			return domain.TimePeriod{}, domain.DayType{}, err
		}
		if period.End, err = parseClock(customEnd); err != nil {
			return domain.TimePeriod{}, domain.DayType{}, err
		}
	}

	days := domain.DayType{Kind: domain.DayKind(dayType)}
	if days.Kind == domain.DaysCustom {
		for _, d := range customDays {
			days.Days = append(days.Days, time.Weekday(d%7))
		}
	}

	return period, days, nil
}

func parseClock(s string) (domain.ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}
	return domain.NewClockTime(t.Hour(), t.Minute()), nil
}

func writeRuleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRule):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrRuleNotFound),
		errors.Is(err, domain.ErrZoneNotFound),
		errors.Is(err, domain.ErrUnknownSpot):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
