package dto

import (
	"time"

	"github.com/google/uuid"
)

type PlanResponse struct {
	Id            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	PriceIDR      int64     `json:"price_idr"`
	AnalysisLimit int       `json:"analysis_limit"`
	ChatEnabled   bool      `json:"chat_enabled"`
}

type CheckoutRequest struct {
	PlanId uuid.UUID `json:"plan_id" validate:"required"`
}

type CheckoutResponse struct {
	OrderId     string `json:"order_id"`
	SnapToken   string `json:"snap_token"`
	RedirectURL string `json:"redirect_url"`
}

type SubscriptionStatusResponse struct {
	SubscriptionId   uuid.UUID `json:"subscription_id"`
	PlanName         string    `json:"plan_name"`
	Status           string    `json:"status"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
	AnalysisLimit    int       `json:"analysis_limit"`
	ChatEnabled      bool      `json:"chat_enabled"`
	IsActive         bool      `json:"is_active"`
}

// MidtransWebhookRequest carries the fields we verify and act on from the
// payment notification callback.
type MidtransWebhookRequest struct {
	OrderId           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
}
