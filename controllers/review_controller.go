package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cafepass/models"
	"cafepass/utils"
)

// ReviewController manages café reviews.
type ReviewController struct {
	db *gorm.DB
}

// NewReviewController creates a new ReviewController instance.
func NewReviewController(db *gorm.DB) *ReviewController {
	return &ReviewController{db: db}
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Content string `json:"content"`
}

// CreateReview adds a review for a café.
func (c *ReviewController) CreateReview(ctx *gin.Context) {
	var req reviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		utils.Error(ctx, http.StatusBadRequest, 40041, "rating must be between 1 and 5")
		return
	}
	content := utils.Sanitize(strings.TrimSpace(req.Content))
	if len([]rune(content)) > 4000 {
		utils.Error(ctx, http.StatusBadRequest, 40042, "content too long")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "unauthorized")
		return
	}

	cafeID := ctx.Param("id")
	var cafe models.Cafe
	if err := c.db.First(&cafe, cafeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40405, "cafe not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load cafe")
		return
	}

	review := models.Review{
		CafeID:  cafe.ID,
		UserID:  userID,
		Rating:  req.Rating,
		Content: content,
	}
	if err := c.db.Create(&review).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to create review")
		return
	}
	c.db.Preload("User").First(&review, review.ID)

	utils.InvalidateByPrefix("cache:cafe:detail:" + cafeID)

	utils.Success(ctx, gin.H{"review": sanitizeReviewResponse(&review)})
}

// ListCafeReviews returns paginated reviews for a café, newest first.
func (c *ReviewController) ListCafeReviews(ctx *gin.Context) {
	cafeID := ctx.Param("id")
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var total int64
	if err := c.db.Model(&models.Review{}).Where("cafe_id = ?", cafeID).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to count reviews")
		return
	}

	var reviews []models.Review
	if err := c.db.Preload("User").
		Where("cafe_id = ?", cafeID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&reviews).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to list reviews")
		return
	}

	items := make([]gin.H, 0, len(reviews))
	for i := range reviews {
		items = append(items, sanitizeReviewResponse(&reviews[i]))
	}

	utils.Success(ctx, gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// DeleteReview removes a review. Only the author or an admin may delete.
func (c *ReviewController) DeleteReview(ctx *gin.Context) {
	var review models.Review
	if err := c.db.First(&review, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40406, "review not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to load review")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40121, "unauthorized")
		return
	}
	if review.UserID != userID && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40303, "you can only delete your own reviews")
		return
	}

	if err := c.db.Delete(&review).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to delete review")
		return
	}

	utils.InvalidateByPrefix("cache:cafe:detail:")

	utils.Success(ctx, gin.H{"message": "review deleted"})
}

func sanitizeReviewResponse(r *models.Review) gin.H {
	return gin.H{
		"id":         r.ID,
		"cafe_id":    r.CafeID,
		"rating":     r.Rating,
		"content":    r.Content,
		"created_at": r.CreatedAt,
		"author": gin.H{
			"id":         r.User.ID,
			"username":   r.User.Username,
			"avatar_url": r.User.AvatarURL,
		},
	}
}
