// controllers/controllers.go
package controllers

import (
	"errors"
	"net/http"

	"bookhub-backend/services"
	"bookhub-backend/store"
	"bookhub-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Wired once at startup; handlers are plain package functions like the rest
// of the controller layer.
var (
	DataStore *store.Store
	Slots     *services.SlotGenerator
	Conflicts *services.ConflictChecker
	Policies  *services.PolicyEngine
	Escrow    *services.EscrowService
	Bookings  *services.BookingService
	Recurring *services.RecurringService
)

func Init(db *gorm.DB, notifier services.Notifier, gateway services.PaymentGateway) {
	DataStore = store.New(db)
	Slots = services.NewSlotGenerator(DataStore)
	Conflicts = services.NewConflictChecker(DataStore)
	Policies = services.NewPolicyEngine(DataStore)
	Escrow = services.NewEscrowService(DataStore, notifier)
	Bookings = services.NewBookingService(DataStore, Conflicts, Policies, Escrow, gateway, notifier)
	Recurring = services.NewRecurringService(DataStore, Bookings)
}

// actorID extracts the authenticated user id set by the auth middleware.
func actorID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("userId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw.(string))
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Invalid user ID format")
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Policy violations ("not allowed") and conflicts ("not possible") get
// distinct statuses so clients can pick the right retry strategy.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case services.IsInputError(err) != nil:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "Invalid input",
			"fields": services.IsInputError(err).Fields(),
		})
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithError(c, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrNotAuthorized):
		utils.RespondWithError(c, http.StatusForbidden, "You are not a party to this booking")
	case services.IsConflictError(err) != nil:
		utils.RespondWithError(c, http.StatusConflict, err.Error())
	case services.IsPolicyViolation(err) != nil:
		utils.RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Internal error")
	}
}
