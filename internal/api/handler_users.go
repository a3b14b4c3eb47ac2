package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"

	"parking-bot-backend/internal/conversation"
	"parking-bot-backend/internal/model"
	"parking-bot-backend/internal/parse"
	"parking-bot-backend/internal/store"
)

// UserResponse represents the API response for a chat user.
type UserResponse struct {
	Address      string    `json:"address"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Registration string    `json:"registration"`
	Step         string    `json:"step"`
	ManagedLotID *string   `json:"managedLotId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toUserResponse(u model.User) UserResponse {
	return UserResponse{
		Address:      u.Address,
		Name:         u.Name,
		Role:         string(u.Role),
		Registration: string(u.Registration),
		Step:         u.Step,
		ManagedLotID: u.ManagedLotID,
		CreatedAt:    u.CreatedAt,
	}
}

// GetUsers handles GET /api/users.
func (h *Handler) GetUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve users"})
		return
	}

	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, toUserResponse(u))
	}
	c.JSON(http.StatusOK, responses)
}

type provisionManagerRequest struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	LotID   string `json:"lot_id"`
}

func (r provisionManagerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Address, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Name, validation.Length(0, parse.MaxNameLength)),
		validation.Field(&r.LotID, validation.Required),
	)
}

// ProvisionManager handles POST /api/managers: it creates or promotes a user to
// manager of a lot and resets their conversation to the start.
func (h *Handler) ProvisionManager(c *gin.Context) {
	var req provisionManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req.Address = strings.TrimSpace(req.Address)
	req.LotID = strings.TrimSpace(req.LotID)
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetLot(ctx, req.LotID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "lot not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load lot"})
		}
		return
	}

	name, nameErr := parse.Name(req.Name)
	status := http.StatusOK
	user, err := h.store.GetUser(ctx, req.Address)
	switch {
	case errors.Is(err, store.ErrNotFound):
		newUser := model.User{
			Address:      req.Address,
			Role:         model.RoleManager,
			Registration: model.RegistrationAwaitingName,
		}
		if nameErr == nil {
			newUser.Name = name
			newUser.Registration = model.RegistrationComplete
		}
		err = h.store.CreateUser(ctx, newUser)
		status = http.StatusCreated
	case err == nil:
		err = h.promote(c, user, name, nameErr == nil)
	}
	if err == nil {
		err = h.store.AssignLot(ctx, req.Address, req.LotID)
	}
	if err == nil {
		err = h.store.SaveConversation(ctx, req.Address, string(conversation.StepInitial), model.TransientContext{}, "")
	}
	if err == nil {
		user, err = h.store.GetUser(ctx, req.Address)
	}
	if err != nil {
		logrus.WithField("address", req.Address).Errorf("[API] provision manager: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to provision manager"})
		return
	}

	logrus.WithFields(logrus.Fields{"address": req.Address, "lot_id": req.LotID}).Info("[API] manager provisioned")
	c.JSON(status, toUserResponse(user))
}

// promote turns an existing user into a manager, completing registration when
// a usable name is supplied.
func (h *Handler) promote(c *gin.Context, user model.User, name string, hasName bool) error {
	ctx := c.Request.Context()
	if err := h.store.SetRole(ctx, user.Address, model.RoleManager); err != nil {
		return err
	}
	if !hasName {
		return nil
	}
	if err := h.store.SetName(ctx, user.Address, name); err != nil {
		return err
	}
	return h.store.SetRegistrationStatus(ctx, user.Address, model.RegistrationComplete)
}
