// services/notifier.go
package services

import (
	"log"
	"os"
	"strings"
	"time"

	"bookhub-backend/models"

	"github.com/google/uuid"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
)

// Booking lifecycle events emitted by the core. Delivery channels are the
// notifier's concern, not the engine's.
const (
	EventBookingRequested   = "booking_requested"
	EventBookingAccepted    = "booking_accepted"
	EventBookingDeclined    = "booking_declined"
	EventBookingCancelled   = "booking_cancelled"
	EventBookingCompleted   = "booking_completed"
	EventBookingRescheduled = "booking_rescheduled"
	EventBookingReminder    = "booking_reminder"
	EventFundsAvailable     = "funds_available"
)

// Notifier is the fire-and-forget notification collaborator. Failures are
// logged, never propagated into booking-path operations.
type Notifier interface {
	Notify(event string, recipientID uuid.UUID, bookingID *uuid.UUID, message string)
}

type TwilioNotifier struct {
	db     *gorm.DB
	client *twilio.RestClient
}

func NewTwilioNotifier(db *gorm.DB) *TwilioNotifier {
	// Initialize Twilio client
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	return &TwilioNotifier{
		db: db,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
	}
}

func (n *TwilioNotifier) Notify(event string, recipientID uuid.UUID, bookingID *uuid.UUID, message string) {
	var recipient models.User
	if err := n.db.First(&recipient, "id = ?", recipientID).Error; err != nil {
		log.Printf("notifier: unknown recipient %s for %s: %v", recipientID, event, err)
		return
	}
	if recipient.Phone == "" {
		log.Printf("notifier: recipient %s has no phone, skipping %s", recipientID, event)
		return
	}

	// Determine channel (WhatsApp if available, else SMS)
	channel := "sms"
	var to string

	// Use WhatsApp if phone is in E.164 format and starts with '+'
	if strings.HasPrefix(recipient.Phone, "+") {
		to = "whatsapp:" + recipient.Phone
		channel = "whatsapp"
	} else {
		to = recipient.Phone
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetBody(message)

	if channel == "whatsapp" {
		params.SetFrom("whatsapp:" + os.Getenv("TWILIO_WHATSAPP_NUMBER"))
	} else {
		params.SetFrom(os.Getenv("TWILIO_PHONE_NUMBER"))
	}

	resp, err := n.client.Api.CreateMessage(params)
	status := "sent"
	errorMsg := ""

	if err != nil {
		log.Printf("notifier: failed to send %s to %s: %v", event, recipient.Phone, err)
		status = "failed"
		errorMsg = err.Error()
	} else if resp.Sid != nil {
		log.Printf("notifier: %s sent to %s, SID: %s", event, recipient.Phone, *resp.Sid)
	}

	entry := models.NotificationLog{
		RecipientID:  recipientID,
		BookingID:    bookingID,
		Event:        event,
		Message:      message,
		Status:       status,
		ErrorMessage: errorMsg,
		Channel:      channel,
		SentAt:       time.Now(),
	}

	if err := n.db.Create(&entry).Error; err != nil {
		log.Printf("notifier: failed to log %s for %s: %v", event, recipientID, err)
	}
}
