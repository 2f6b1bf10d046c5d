package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cafepass/models"
	"cafepass/utils"
)

// StatsController exposes aggregate counters for the site and per café.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// SiteStats returns site-wide totals. Cached briefly since the counts move slowly.
func (c *StatsController) SiteStats(ctx *gin.Context) {
	const cacheKey = "cache:stats:site"
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	var users, cafes, reviews, stamps int64
	if err := c.db.Model(&models.User{}).Count(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to load stats")
		return
	}
	c.db.Model(&models.Cafe{}).Count(&cafes)
	c.db.Model(&models.Review{}).Count(&reviews)
	c.db.Model(&models.Stamp{}).Count(&stamps)

	payload := gin.H{
		"users":   users,
		"cafes":   cafes,
		"reviews": reviews,
		"stamps":  stamps,
	}
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(cacheKey, wrapper, 5*time.Minute)
	utils.Success(ctx, payload)
}

// CafeStats returns rating, review, stamp and view totals for one café.
func (c *StatsController) CafeStats(ctx *gin.Context) {
	cafeID := ctx.Param("id")

	var cafe models.Cafe
	if err := c.db.First(&cafe, cafeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "cafe not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to load cafe")
		return
	}

	var reviewAgg struct {
		Count     int64
		AvgRating float64
	}
	if err := c.db.Model(&models.Review{}).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS avg_rating").
		Where("cafe_id = ?", cafe.ID).
		Scan(&reviewAgg).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50072, "failed to aggregate reviews")
		return
	}

	var stampCount int64
	c.db.Model(&models.Stamp{}).Where("cafe_id = ?", cafe.ID).Count(&stampCount)

	var totalViews int64
	c.db.Model(&models.CafeView{}).
		Where("cafe_id = ?", cafe.ID).
		Select("COALESCE(SUM(count), 0)").
		Scan(&totalViews)

	utils.Success(ctx, gin.H{
		"cafe_id":      cafe.ID,
		"review_count": reviewAgg.Count,
		"avg_rating":   reviewAgg.AvgRating,
		"stamp_count":  stampCount,
		"total_views":  totalViews,
	})
}
