// controllers/policy.go
package controllers

import (
	"errors"
	"net/http"
	"time"

	"bookhub-backend/config"
	"bookhub-backend/models"
	"bookhub-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreatePolicyInput defines the expected JSON structure for a booking policy
type CreatePolicyInput struct {
	ServiceID          string                   `json:"serviceId" binding:"required"`
	PolicyType         string                   `json:"policyType" binding:"required,oneof=cancellation rescheduling no_show"`
	HoursBeforeBooking float64                  `json:"hoursBeforeBooking" binding:"min=0"`
	PenaltyType        string                   `json:"penaltyType" binding:"required,oneof=none percentage fixed"`
	PenaltyValue       float64                  `json:"penaltyValue" binding:"min=0"`
	AllowExceptions    bool                     `json:"allowExceptions"`
	Exceptions         []models.PolicyException `json:"exceptions"`
	HardBlock          bool                     `json:"hardBlock"`
}

// UpdatePolicyInput defines the expected JSON structure for updating a policy
type UpdatePolicyInput struct {
	HoursBeforeBooking *float64                  `json:"hoursBeforeBooking"`
	PenaltyType        *string                   `json:"penaltyType"`
	PenaltyValue       *float64                  `json:"penaltyValue"`
	AllowExceptions    *bool                     `json:"allowExceptions"`
	Exceptions         *[]models.PolicyException `json:"exceptions"`
	HardBlock          *bool                     `json:"hardBlock"`
	Active             *bool                     `json:"active"`
}

// EvaluatePolicyInput previews a policy decision for a booking
type EvaluatePolicyInput struct {
	BookingID  string `json:"bookingId" binding:"required"`
	PolicyType string `json:"policyType" binding:"required,oneof=cancellation rescheduling no_show"`
	Reason     string `json:"reason"`
}

// CreatePolicy attaches a policy to one of the provider's services. Only one
// active policy per (service, type); creating a new one deactivates the old.
func CreatePolicy(c *gin.Context) {
	providerID, ok := actorID(c)
	if !ok {
		return
	}

	var input CreatePolicyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	serviceUUID, err := uuid.Parse(input.ServiceID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid service ID format")
		return
	}

	var service models.Service
	if err := config.DB.Where("id = ? AND provider_id = ?", serviceUUID, providerID).
		First(&service).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.PenaltyType == models.PenaltyPercentage && input.PenaltyValue > 100 {
		utils.RespondWithError(c, http.StatusBadRequest, "Percentage penalty cannot exceed 100")
		return
	}

	policy := models.BookingPolicy{
		ServiceID:          serviceUUID,
		Type:               input.PolicyType,
		HoursBeforeBooking: input.HoursBeforeBooking,
		PenaltyType:        input.PenaltyType,
		PenaltyValue:       input.PenaltyValue,
		AllowExceptions:    input.AllowExceptions,
		Exceptions:         input.Exceptions,
		HardBlock:          input.HardBlock,
		Active:             true,
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.BookingPolicy{}).
			Where("service_id = ? AND type = ? AND active = ?", serviceUUID, input.PolicyType, true).
			Update("active", false).Error; err != nil {
			return err
		}
		return tx.Create(&policy).Error
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create policy")
		return
	}

	c.JSON(http.StatusCreated, policy)
}

// GetPolicies lists policies for one of the provider's services
func GetPolicies(c *gin.Context) {
	providerID, ok := actorID(c)
	if !ok {
		return
	}

	serviceUUID, err := uuid.Parse(c.Param("serviceId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid service ID format")
		return
	}

	var service models.Service
	if err := config.DB.Where("id = ? AND provider_id = ?", serviceUUID, providerID).
		First(&service).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		return
	}

	var policies []models.BookingPolicy
	if err := config.DB.Where("service_id = ?", serviceUUID).
		Order("type, created_at DESC").
		Find(&policies).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve policies")
		return
	}

	c.JSON(http.StatusOK, policies)
}

// UpdatePolicy updates an existing policy on the provider's service
func UpdatePolicy(c *gin.Context) {
	providerID, ok := actorID(c)
	if !ok {
		return
	}

	policyUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid policy ID format")
		return
	}

	var input UpdatePolicyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var policy models.BookingPolicy
	if err := config.DB.
		Joins("JOIN services ON services.id = booking_policies.service_id").
		Where("booking_policies.id = ? AND services.provider_id = ?", policyUUID, providerID).
		First(&policy).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Policy not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.HoursBeforeBooking != nil {
		policy.HoursBeforeBooking = *input.HoursBeforeBooking
	}
	if input.PenaltyType != nil {
		switch *input.PenaltyType {
		case models.PenaltyPercentage, models.PenaltyFixed, models.PenaltyNone:
			policy.PenaltyType = *input.PenaltyType
		default:
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid penaltyType")
			return
		}
	}
	if input.PenaltyValue != nil {
		policy.PenaltyValue = *input.PenaltyValue
	}
	if input.AllowExceptions != nil {
		policy.AllowExceptions = *input.AllowExceptions
	}
	if input.Exceptions != nil {
		policy.Exceptions = *input.Exceptions
	}
	if input.HardBlock != nil {
		policy.HardBlock = *input.HardBlock
	}
	if input.Active != nil {
		policy.Active = *input.Active
	}

	if policy.PenaltyType == models.PenaltyPercentage && policy.PenaltyValue > 100 {
		utils.RespondWithError(c, http.StatusBadRequest, "Percentage penalty cannot exceed 100")
		return
	}

	if err := config.DB.Save(&policy).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update policy")
		return
	}

	c.JSON(http.StatusOK, policy)
}

// EvaluatePolicy previews what a cancellation, reschedule or no-show would
// cost right now, without changing the booking
func EvaluatePolicy(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var input EvaluatePolicyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	bookingUUID, err := uuid.Parse(input.BookingID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	booking, err := Bookings.Get(bookingUUID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if booking.CustomerID != userID && booking.ProviderID != userID {
		utils.RespondWithError(c, http.StatusForbidden, "Not authorized to view this booking")
		return
	}

	reason := input.Reason
	if booking.ProviderID == userID {
		reason = models.ExceptionProviderInitiated
	}

	decision, err := Policies.Evaluate(booking, input.PolicyType, reason, time.Now().UTC())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}
