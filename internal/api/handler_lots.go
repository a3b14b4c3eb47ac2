package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"

	"parking-bot-backend/internal/model"
	"parking-bot-backend/internal/store"
)

// LotResponse represents the API response for a single parking lot.
type LotResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Location     string    `json:"location"`
	Capacity     int       `json:"capacity"`
	HasSpots     bool      `json:"hasSpots"`
	FreeEstimate int       `json:"freeEstimate"`
	RangeLabel   string    `json:"rangeLabel"`
	Description  string    `json:"description"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

func toLotResponse(lot model.ParkingLot) LotResponse {
	return LotResponse{
		ID:           lot.ID,
		Name:         lot.Name,
		Location:     lot.Location,
		Capacity:     lot.Capacity,
		HasSpots:     lot.HasSpots,
		FreeEstimate: lot.FreeEstimate,
		RangeLabel:   lot.RangeLabel,
		Description:  lot.Description,
		LastUpdated:  lot.LastUpdated,
	}
}

type createLotRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Capacity int    `json:"capacity"`
}

func (r createLotRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.Location, validation.Required, validation.Length(1, 256)),
		validation.Field(&r.Capacity, validation.Min(0)),
	)
}

// CreateLot handles POST /api/lots. A new lot starts full until its manager reports.
func (h *Handler) CreateLot(c *gin.Context) {
	var req createLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	full, _ := model.TierByNumber(1)
	lot, err := h.store.CreateLot(c.Request.Context(), model.ParkingLot{
		Name:         req.Name,
		Location:     req.Location,
		Capacity:     req.Capacity,
		HasSpots:     full.HasSpots,
		FreeEstimate: full.FreeEstimate,
		RangeLabel:   full.RangeLabel,
		Description:  full.Description,
	})
	if errors.Is(err, store.ErrDuplicateName) {
		c.JSON(http.StatusConflict, gin.H{"error": "a lot with this name already exists"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create lot"})
		return
	}

	h.invalidate()
	logrus.WithFields(logrus.Fields{"lot_id": lot.ID, "name": lot.Name}).Info("[API] lot created")
	c.JSON(http.StatusCreated, toLotResponse(lot))
}

// GetLots handles GET /api/lots.
func (h *Handler) GetLots(c *gin.Context) {
	lots, err := h.store.ListLots(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve lots"})
		return
	}

	responses := make([]LotResponse, 0, len(lots))
	for _, lot := range lots {
		responses = append(responses, toLotResponse(lot))
	}
	c.JSON(http.StatusOK, responses)
}

type updateOccupancyRequest struct {
	Tier int `json:"tier"`
}

func (r updateOccupancyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Tier, validation.Required, validation.Min(1), validation.Max(len(model.Tiers))),
	)
}

// UpdateOccupancy handles PUT /api/lots/:id/occupancy. It goes through the same
// update-then-notify path as a manager's chat confirmation.
func (h *Handler) UpdateOccupancy(c *gin.Context) {
	var req updateOccupancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tier, _ := model.TierByNumber(req.Tier)

	lot, notified, err := h.capacity.UpdateCapacity(c.Request.Context(), c.Param("id"), tier.Occupancy)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "lot not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update occupancy"})
		return
	}

	h.invalidate()
	c.JSON(http.StatusOK, gin.H{"lot": toLotResponse(lot), "notified": notified})
}
