package controllers

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cafepass/config"
	"cafepass/middleware"
	"cafepass/models"
	"cafepass/services"
	"cafepass/utils"
)

// CafeController manages CRUD operations and discovery queries for cafés.
type CafeController struct {
	db *gorm.DB
}

// NewCafeController creates a new CafeController instance.
func NewCafeController(db *gorm.DB) *CafeController {
	return &CafeController{db: db}
}

type cafeRequest struct {
	Name         string   `json:"name" binding:"required,min=1"`
	Address      string   `json:"address"`
	Description  string   `json:"description"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Phone        string   `json:"phone"`
	Website      string   `json:"website"`
	OpeningHours string   `json:"opening_hours"`
	PhotoURL     string   `json:"photo_url"`
}

func (r *cafeRequest) validate() string {
	if strings.TrimSpace(r.Name) == "" {
		return "name cannot be empty"
	}
	if (r.Latitude == nil) != (r.Longitude == nil) {
		return "latitude and longitude must be provided together"
	}
	if r.Latitude != nil && !utils.ValidCoordinate(*r.Latitude, *r.Longitude) {
		return "invalid coordinates"
	}
	return ""
}

// CreateCafe allows authenticated users to list a new café.
func (c *CafeController) CreateCafe(ctx *gin.Context) {
	var req cafeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	if msg := req.validate(); msg != "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, msg)
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	cafe := models.Cafe{
		Name:         utils.Sanitize(strings.TrimSpace(req.Name)),
		Address:      utils.Sanitize(strings.TrimSpace(req.Address)),
		Description:  utils.Sanitize(req.Description),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Phone:        strings.TrimSpace(req.Phone),
		Website:      strings.TrimSpace(req.Website),
		OpeningHours: strings.TrimSpace(req.OpeningHours),
		PhotoURL:     strings.TrimSpace(req.PhotoURL),
		CreatedBy:    userID,
	}

	if err := c.db.Create(&cafe).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create cafe")
		return
	}

	utils.InvalidateByPrefix("cache:cafes:list:")

	utils.Success(ctx, gin.H{"cafe": cafe})
}

// ListCafes returns paginated cafés with optional name/address search.
func (c *CafeController) ListCafes(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))

	// Cache plain listing pages; search terms would explode the key space
	if search == "" {
		cacheKey := fmt.Sprintf("cache:cafes:list:page=%d:size=%d", page, pageSize)
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(200, "application/json", b)
			return
		}
	}

	var cafes []models.Cafe
	var total int64

	query := c.db.Order("created_at DESC")
	if search != "" {
		query = query.Where("name LIKE ? OR address LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if err := query.Model(&models.Cafe{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count cafes")
		return
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Find(&cafes).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list cafes")
		return
	}

	payload := gin.H{
		"items": cafes,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	if search == "" {
		cacheKey := fmt.Sprintf("cache:cafes:list:page=%d:size=%d", page, pageSize)
		wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
		utils.CacheSetJSON(cacheKey, wrapper, time.Hour)
	}
	utils.Success(ctx, payload)
}

// NearbyCafes returns cafés within a radius of the given point, nearest first.
// Backs the map view: a bounding-box SQL filter narrows candidates, then the
// exact Haversine distance trims and orders them.
func (c *CafeController) NearbyCafes(ctx *gin.Context) {
	lat, err1 := strconv.ParseFloat(ctx.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(ctx.Query("lng"), 64)
	if err1 != nil || err2 != nil || !utils.ValidCoordinate(lat, lng) {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid or missing lat/lng")
		return
	}

	radius := 2000.0 // meters
	if v := strings.TrimSpace(ctx.Query("radius")); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r > 0 && r <= 50000 {
			radius = r
		}
	}

	// Degrees per meter: ~111.32km per degree latitude; longitude shrinks with cos(lat).
	latDelta := radius / 111320.0
	lngDelta := latDelta
	if cosLat := math.Cos(lat * math.Pi / 180); cosLat > 0.01 {
		lngDelta = latDelta / cosLat
	}

	var cafes []models.Cafe
	if err := c.db.
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("latitude BETWEEN ? AND ?", lat-latDelta, lat+latDelta).
		Where("longitude BETWEEN ? AND ?", lng-lngDelta, lng+lngDelta).
		Find(&cafes).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to query cafes")
		return
	}

	type nearbyCafe struct {
		models.Cafe
		DistanceMeters float64 `json:"distance_meters"`
	}
	results := make([]nearbyCafe, 0, len(cafes))
	for _, cafe := range cafes {
		d := utils.DistanceMeters(lat, lng, *cafe.Latitude, *cafe.Longitude)
		if d <= radius {
			results = append(results, nearbyCafe{Cafe: cafe, DistanceMeters: d})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].DistanceMeters < results[j].DistanceMeters })

	utils.Success(ctx, gin.H{"items": results, "radius_meters": radius})
}

// GetCafe returns a single café with its reviews, recording a daily view count.
func (c *CafeController) GetCafe(ctx *gin.Context) {
	cafeID := ctx.Param("id")

	c.recordView(cafeID)

	if b, ok := utils.CacheGetBytes("cache:cafe:detail:" + cafeID); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	var cafe models.Cafe
	if err := c.db.Preload("Reviews.User").First(&cafe, cafeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "cafe not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load cafe")
		return
	}

	payload := gin.H{"cafe": cafe}
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON("cache:cafe:detail:"+cafeID, wrapper, time.Hour)
	utils.Success(ctx, payload)
}

// recordView upserts the per-day view counter for a café detail page. View
// days bucket in the same configured boundary zone as stamps.
func (c *CafeController) recordView(cafeID string) {
	id, err := strconv.Atoi(cafeID)
	if err != nil || id <= 0 {
		return
	}
	loc := services.DayLocation(config.Get().StampDayBoundaryTZ)
	day := services.DayStart(time.Now(), loc)

	// Atomic upsert to avoid duplicate key errors under concurrency
	_ = c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "cafe_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
	}).Create(&models.CafeView{Date: day, CafeID: uint(id), Count: 1}).Error
}

// UpdateCafe allows the lister or an admin to update a café.
func (c *CafeController) UpdateCafe(ctx *gin.Context) {
	var req cafeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}
	if msg := req.validate(); msg != "" {
		utils.Error(ctx, http.StatusBadRequest, 40025, msg)
		return
	}

	cafeID := ctx.Param("id")
	var cafe models.Cafe
	if err := c.db.First(&cafe, cafeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40403, "cafe not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to load cafe")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "unauthorized")
		return
	}
	if cafe.CreatedBy != userID && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40301, "you can only update cafes you listed")
		return
	}

	cafe.Name = utils.Sanitize(strings.TrimSpace(req.Name))
	cafe.Address = utils.Sanitize(strings.TrimSpace(req.Address))
	cafe.Description = utils.Sanitize(req.Description)
	cafe.Latitude = req.Latitude
	cafe.Longitude = req.Longitude
	cafe.Phone = strings.TrimSpace(req.Phone)
	cafe.Website = strings.TrimSpace(req.Website)
	cafe.OpeningHours = strings.TrimSpace(req.OpeningHours)
	cafe.PhotoURL = strings.TrimSpace(req.PhotoURL)

	if err := c.db.Save(&cafe).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to update cafe")
		return
	}

	utils.InvalidateByPrefix("cache:cafes:list:")
	utils.InvalidateByPrefix("cache:cafe:detail:" + cafeID)

	utils.Success(ctx, gin.H{"cafe": cafe})
}

// DeleteCafe allows the lister or an admin to remove a café.
func (c *CafeController) DeleteCafe(ctx *gin.Context) {
	cafeID := ctx.Param("id")
	var cafe models.Cafe
	if err := c.db.First(&cafe, cafeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40404, "cafe not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load cafe")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "unauthorized")
		return
	}
	if cafe.CreatedBy != userID && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40302, "you can only delete cafes you listed")
		return
	}

	if err := c.db.Delete(&cafe).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to delete cafe")
		return
	}

	utils.InvalidateByPrefix("cache:cafes:list:")
	utils.InvalidateByPrefix("cache:cafe:detail:" + cafeID)

	utils.Success(ctx, gin.H{"message": "cafe deleted"})
}

// UploadPhoto handles café photo uploads.
func (c *CafeController) UploadPhoto(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "unauthorized")
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
		return
	}
	defer file.Close()

	const maxSize = 10 * 1024 * 1024
	if header.Size > 0 && header.Size > maxSize {
		utils.Error(ctx, http.StatusBadRequest, 40031, "file size exceeds 10MB")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		utils.Error(ctx, http.StatusBadRequest, 40032, "unsupported image type")
		return
	}

	now := time.Now()
	baseDir := filepath.Join(".", "static", "uploads", now.Format("2006"), now.Format("01"))
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to create upload directory")
		return
	}

	safeName := fmt.Sprintf("%s_%d%s", uuid.NewString(), userID, ext)
	dstPath := filepath.Join(baseDir, safeName)

	out, err := os.Create(dstPath)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to save file")
		return
	}
	defer out.Close()

	lr := &io.LimitedReader{R: file, N: maxSize + 1}
	written, err := io.Copy(out, lr)
	if err != nil || written > maxSize {
		_ = out.Close()
		_ = os.Remove(dstPath)
		if written > maxSize {
			utils.Error(ctx, http.StatusBadRequest, 40031, "file size exceeds 10MB")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to write file")
		}
		return
	}

	relURL := fmt.Sprintf("/static/uploads/%s/%s/%s", now.Format("2006"), now.Format("01"), safeName)
	utils.Success(ctx, gin.H{"url": relURL})
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func isAdmin(ctx *gin.Context) bool {
	unameVal, exists := ctx.Get(middleware.ContextUsernameKey)
	if !exists {
		return false
	}
	uname, _ := unameVal.(string)
	return isAdminUsername(uname)
}
