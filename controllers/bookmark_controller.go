package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cafepass/models"
	"cafepass/utils"
)

// BookmarkController manages users' saved cafés.
type BookmarkController struct {
	db *gorm.DB
}

// NewBookmarkController creates a new BookmarkController instance.
func NewBookmarkController(db *gorm.DB) *BookmarkController {
	return &BookmarkController{db: db}
}

// AddBookmark saves a café for the current user. Saving twice is a no-op.
func (c *BookmarkController) AddBookmark(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "unauthorized")
		return
	}

	var cafe models.Cafe
	if err := c.db.First(&cafe, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40407, "cafe not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to load cafe")
		return
	}

	bookmark := models.Bookmark{UserID: userID, CafeID: cafe.ID}
	if err := c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "cafe_id"}},
		DoNothing: true,
	}).Create(&bookmark).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to save bookmark")
		return
	}

	utils.Success(ctx, gin.H{"message": "cafe bookmarked"})
}

// RemoveBookmark removes a saved café for the current user.
func (c *BookmarkController) RemoveBookmark(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40131, "unauthorized")
		return
	}

	res := c.db.Where("user_id = ? AND cafe_id = ?", userID, ctx.Param("id")).Delete(&models.Bookmark{})
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to remove bookmark")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40408, "bookmark not found")
		return
	}

	utils.Success(ctx, gin.H{"message": "bookmark removed"})
}

// ListMyBookmarks returns the current user's saved cafés, newest first.
func (c *BookmarkController) ListMyBookmarks(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40132, "unauthorized")
		return
	}

	var bookmarks []models.Bookmark
	if err := c.db.Preload("Cafe").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookmarks).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to list bookmarks")
		return
	}

	utils.Success(ctx, gin.H{"items": bookmarks})
}
