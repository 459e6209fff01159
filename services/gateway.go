// services/gateway.go
package services

import (
	"fmt"
	"math"
	"os"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
)

// PaymentGateway is the narrow contract to the payment collaborator. The core
// only records gateway results; it never implements card protocol details.
type PaymentGateway interface {
	Capture(orderRef string, amount float64) (transactionID, status string, err error)
	Refund(transactionID string, amount float64) (refundID string, err error)
}

type StripeGateway struct {
	currency string
}

func NewStripeGateway() *StripeGateway {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	currency := os.Getenv("STRIPE_CURRENCY")
	if currency == "" {
		currency = "usd"
	}
	return &StripeGateway{currency: currency}
}

func (g *StripeGateway) Capture(orderRef string, amount float64) (string, string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toCents(amount)),
		Currency: stripe.String(g.currency),
		Confirm:  stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.AddMetadata("order_ref", orderRef)

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", "", fmt.Errorf("stripe capture for %s: %w", orderRef, err)
	}
	return pi.ID, string(pi.Status), nil
}

func (g *StripeGateway) Refund(transactionID string, amount float64) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(transactionID),
		Amount:        stripe.Int64(toCents(amount)),
	}

	r, err := refund.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe refund of %s: %w", transactionID, err)
	}
	return r.ID, nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
