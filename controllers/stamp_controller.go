package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cafepass/services"
	"cafepass/utils"
)

// stampService is the slice of the stamp service the controller consumes.
type stampService interface {
	Claim(ctx context.Context, userID, cafeID uint, lat, lng float64) (*services.ClaimResult, error)
	History(ctx context.Context, userID uint) ([]services.StampEntry, error)
	Passport(ctx context.Context, userID uint) (*services.PassportSummary, error)
}

// StampController exposes the passport stamping endpoints.
type StampController struct {
	stamps stampService
}

// NewStampController creates a new StampController instance.
func NewStampController(db *gorm.DB) *StampController {
	return &StampController{stamps: services.NewStampService(db)}
}

type claimStampRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// ClaimStamp verifies the caller is physically at the café and records one
// stamp for today. Repeat claims for the same café on the same day conflict.
func (c *StampController) ClaimStamp(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40140, "unauthorized")
		return
	}

	cafeID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || cafeID == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid cafe id")
		return
	}

	var req claimStampRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, "latitude and longitude are required")
		return
	}
	if !utils.ValidCoordinate(*req.Latitude, *req.Longitude) {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid coordinates")
		return
	}

	result, err := c.stamps.Claim(ctx.Request.Context(), userID, uint(cafeID), *req.Latitude, *req.Longitude)
	if err != nil {
		var tooFar *services.TooFarError
		switch {
		case errors.Is(err, services.ErrCafeNotFound):
			utils.Error(ctx, http.StatusNotFound, 40409, "cafe not found")
		case errors.As(err, &tooFar):
			ctx.JSON(http.StatusForbidden, utils.JSONResponse{
				Code:    40310,
				Message: "too far from cafe to claim a stamp",
				Data: gin.H{
					"distance_meters":  tooFar.DistanceMeters,
					"threshold_meters": tooFar.ThresholdMeters,
				},
			})
		case errors.Is(err, services.ErrAlreadyStamped):
			utils.Error(ctx, http.StatusConflict, 40910, "stamp already claimed at this cafe today")
		default:
			utils.Error(ctx, http.StatusServiceUnavailable, 50310, "could not record stamp, please retry")
		}
		return
	}

	utils.Success(ctx, gin.H{
		"stamp_count":     result.StampCount,
		"distance_meters": result.DistanceMeters,
	})
}

// StampHistory returns the caller's stamps, newest first.
func (c *StampController) StampHistory(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40141, "unauthorized")
		return
	}

	entries, err := c.stamps.History(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50311, "stamp history unavailable, please retry")
		return
	}

	utils.Success(ctx, gin.H{"items": entries, "total": len(entries)})
}

// Passport returns the caller's stamp totals.
func (c *StampController) Passport(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40142, "unauthorized")
		return
	}

	summary, err := c.stamps.Passport(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50312, "passport unavailable, please retry")
		return
	}

	utils.Success(ctx, gin.H{
		"total_stamps":   summary.TotalStamps,
		"distinct_cafes": summary.DistinctCafes,
	})
}
