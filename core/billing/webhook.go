package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SampleFinder/logger"
	"SampleFinder/model"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

// AppName tags checkout sessions and subscriptions created by this service.
const AppName = "samplefinder"

// Webhook result reasons.
const (
	ReasonNotConfigured    = "not_configured"
	ReasonInvalidSignature = "invalid_signature"
	ReasonInvalidJSON      = "invalid_json"
	ReasonNotForThisApp    = "not_for_this_app"
	ReasonError            = "error"
)

// SubscriptionStore persists subscription rows keyed by user id.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	UpsertSubscription(ctx context.Context, sub *model.Subscription) error
	UpdateSubscription(ctx context.Context, userID string, updates map[string]interface{}) error
}

// SubscriptionFetcher loads the current state of a subscription from the billing provider.
type SubscriptionFetcher interface {
	FetchSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

// StripeFetcher implements SubscriptionFetcher with the Stripe API.
type StripeFetcher struct {
	api *client.API
}

func NewStripeFetcher(secretKey string) *StripeFetcher {
	return &StripeFetcher{api: client.New(secretKey, nil)}
}

func (f *StripeFetcher) FetchSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return f.api.Subscriptions.Get(id, params)
}

// WebhookResult is the JSON body answered for every webhook call.
type WebhookResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// WebhookProcessor verifies billing events and applies them to the store.
type WebhookProcessor struct {
	store   SubscriptionStore
	fetcher SubscriptionFetcher
	secret  string
	now     func() time.Time
}

// NewWebhookProcessor creates a processor. With an empty secret events are
// accepted without signature verification.
func NewWebhookProcessor(store SubscriptionStore, fetcher SubscriptionFetcher, secret string) *WebhookProcessor {
	return &WebhookProcessor{store: store, fetcher: fetcher, secret: secret, now: time.Now}
}

// Process handles one webhook delivery. It never returns an error; failures
// are reported in the result.
func (p *WebhookProcessor) Process(ctx context.Context, payload []byte, signature string) WebhookResult {
	if p == nil || p.store == nil || p.fetcher == nil {
		return WebhookResult{Reason: ReasonNotConfigured}
	}

	var event stripe.Event
	if p.secret != "" {
		var err error
		event, err = webhook.ConstructEventWithOptions(payload, signature, p.secret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			logger.Warn("webhook signature verification failed", logger.ErrorField(err))
			return WebhookResult{Reason: ReasonInvalidSignature}
		}
	} else if err := json.Unmarshal(payload, &event); err != nil {
		return WebhookResult{Reason: ReasonInvalidJSON}
	}

	if event.Data == nil {
		return WebhookResult{Reason: ReasonInvalidJSON}
	}
	if name := metadataValue(event.Data.Object, "app_name"); name != "" && name != AppName {
		return WebhookResult{OK: true, Reason: ReasonNotForThisApp}
	}

	var err error
	switch event.Type {
	case "checkout.session.completed":
		err = p.checkoutCompleted(ctx, event.Data.Raw)
	case "customer.subscription.updated":
		err = p.subscriptionUpdated(ctx, event.Data.Raw)
	case "customer.subscription.deleted":
		err = p.subscriptionDeleted(ctx, event.Data.Raw)
	default:
		logger.Debug("unhandled webhook event", logger.String("type", string(event.Type)))
	}
	if err != nil {
		logger.Error("webhook processing failed",
			logger.String("type", string(event.Type)),
			logger.String("event_id", event.ID),
			logger.ErrorField(err))
		return WebhookResult{Reason: ReasonError}
	}
	return WebhookResult{OK: true}
}

func metadataValue(object map[string]interface{}, key string) string {
	metadata, ok := object["metadata"].(map[string]interface{})
	if !ok {
		return ""
	}
	value, _ := metadata[key].(string)
	return value
}

func (p *WebhookProcessor) checkoutCompleted(ctx context.Context, raw json.RawMessage) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("failed to decode checkout session: %w", err)
	}
	if session.Mode != stripe.CheckoutSessionModeSubscription || session.Subscription == nil || session.Subscription.ID == "" {
		return nil
	}
	userID := session.Metadata["user_id"]
	if userID == "" {
		return nil
	}

	sub, err := p.fetcher.FetchSubscription(ctx, session.Subscription.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription %s: %w", session.Subscription.ID, err)
	}

	row := &model.Subscription{
		UserID:               userID,
		StripeSubscriptionID: session.Subscription.ID,
		Status:               string(sub.Status),
		PriceID:              priceID(sub),
		CurrentPeriodEnd:     periodEnd(sub),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		UpdatedAt:            p.now(),
	}
	if session.Customer != nil {
		row.StripeCustomerID = session.Customer.ID
	}
	return p.store.UpsertSubscription(ctx, row)
}

func (p *WebhookProcessor) subscriptionUpdated(ctx context.Context, raw json.RawMessage) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("failed to decode subscription: %w", err)
	}
	userID := sub.Metadata["user_id"]
	if userID == "" {
		return nil
	}
	return p.store.UpdateSubscription(ctx, userID, map[string]interface{}{
		"status":               string(sub.Status),
		"price_id":             priceID(&sub),
		"current_period_end":   periodEnd(&sub),
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
		"updated_at":           p.now(),
	})
}

func (p *WebhookProcessor) subscriptionDeleted(ctx context.Context, raw json.RawMessage) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("failed to decode subscription: %w", err)
	}
	userID := sub.Metadata["user_id"]
	if userID == "" {
		return nil
	}
	return p.store.UpdateSubscription(ctx, userID, map[string]interface{}{
		"status":     "canceled",
		"updated_at": p.now(),
	})
}

func priceID(sub *stripe.Subscription) *string {
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil || sub.Items.Data[0].Price.ID == "" {
		return nil
	}
	id := sub.Items.Data[0].Price.ID
	return &id
}

func periodEnd(sub *stripe.Subscription) *time.Time {
	if sub.CurrentPeriodEnd == 0 {
		return nil
	}
	t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	return &t
}
