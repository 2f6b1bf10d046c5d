package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafepass/middleware"
	"cafepass/services"
)

type fakeStampService struct {
	claimResult *services.ClaimResult
	claimErr    error
	history     []services.StampEntry
	historyErr  error
	passport    *services.PassportSummary
	passportErr error
}

func (s *fakeStampService) Claim(_ context.Context, _, _ uint, _, _ float64) (*services.ClaimResult, error) {
	return s.claimResult, s.claimErr
}

func (s *fakeStampService) History(_ context.Context, _ uint) ([]services.StampEntry, error) {
	return s.history, s.historyErr
}

func (s *fakeStampService) Passport(_ context.Context, _ uint) (*services.PassportSummary, error) {
	return s.passport, s.passportErr
}

func newStampTestRouter(svc stampService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ctrl := &StampController{stamps: svc}
	asUser := func(c *gin.Context) { c.Set(middleware.ContextUserIDKey, uint(7)) }
	r.POST("/api/v1/cafes/:id/stamps", asUser, ctrl.ClaimStamp)
	r.GET("/api/v1/users/me/stamps", asUser, ctrl.StampHistory)
	r.GET("/api/v1/users/me/passport", asUser, ctrl.Passport)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestClaimStampSuccessResponse(t *testing.T) {
	r := newStampTestRouter(&fakeStampService{
		claimResult: &services.ClaimResult{StampCount: 3, DistanceMeters: 42.5},
	})

	w := doJSON(t, r, http.MethodPost, "/api/v1/cafes/1/stamps", `{"latitude":1.30045,"longitude":103.80045}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			StampCount     int64   `json:"stamp_count"`
			DistanceMeters float64 `json:"distance_meters"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, int64(3), resp.Data.StampCount)
	assert.Equal(t, 42.5, resp.Data.DistanceMeters)
}

func TestClaimStampTooFarResponse(t *testing.T) {
	r := newStampTestRouter(&fakeStampService{
		claimErr: &services.TooFarError{DistanceMeters: 1520, ThresholdMeters: 100},
	})

	w := doJSON(t, r, http.MethodPost, "/api/v1/cafes/1/stamps", `{"latitude":1.31,"longitude":103.81}`)
	require.Equal(t, http.StatusForbidden, w.Code)

	var resp struct {
		Data struct {
			DistanceMeters  float64 `json:"distance_meters"`
			ThresholdMeters float64 `json:"threshold_meters"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1520.0, resp.Data.DistanceMeters)
	assert.Equal(t, 100.0, resp.Data.ThresholdMeters)
}

func TestClaimStampDuplicateResponse(t *testing.T) {
	r := newStampTestRouter(&fakeStampService{claimErr: services.ErrAlreadyStamped})

	w := doJSON(t, r, http.MethodPost, "/api/v1/cafes/1/stamps", `{"latitude":1.3,"longitude":103.8}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestClaimStampUnknownCafeResponse(t *testing.T) {
	r := newStampTestRouter(&fakeStampService{claimErr: services.ErrCafeNotFound})

	w := doJSON(t, r, http.MethodPost, "/api/v1/cafes/99/stamps", `{"latitude":1.3,"longitude":103.8}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClaimStampStoreFailureResponse(t *testing.T) {
	r := newStampTestRouter(&fakeStampService{claimErr: errors.New("connection reset")})

	w := doJSON(t, r, http.MethodPost, "/api/v1/cafes/1/stamps", `{"latitude":1.3,"longitude":103.8}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestClaimStampInvalidBody(t *testing.T) {
	r := newStampTestRouter(&fakeStampService{})

	w := doJSON(t, r, http.MethodPost, "/api/v1/cafes/1/stamps", `{"latitude":1.3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStampHistoryStoreFailureIsTransient(t *testing.T) {
	r := newStampTestRouter(&fakeStampService{historyErr: errors.New("driver: bad connection")})

	w := doJSON(t, r, http.MethodGet, "/api/v1/users/me/stamps", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPassportStoreFailureIsTransient(t *testing.T) {
	r := newStampTestRouter(&fakeStampService{passportErr: errors.New("driver: bad connection")})

	w := doJSON(t, r, http.MethodGet, "/api/v1/users/me/passport", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
