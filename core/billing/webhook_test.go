package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"SampleFinder/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

type memorySubscriptions struct {
	rows      map[string]*model.Subscription
	updateErr error
}

func newMemorySubscriptions() *memorySubscriptions {
	return &memorySubscriptions{rows: map[string]*model.Subscription{}}
}

func (m *memorySubscriptions) GetSubscription(_ context.Context, userID string) (*model.Subscription, error) {
	return m.rows[userID], nil
}

func (m *memorySubscriptions) UpsertSubscription(_ context.Context, sub *model.Subscription) error {
	cp := *sub
	m.rows[sub.UserID] = &cp
	return nil
}

func (m *memorySubscriptions) UpdateSubscription(_ context.Context, userID string, updates map[string]interface{}) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	row, ok := m.rows[userID]
	if !ok {
		return nil
	}
	if v, ok := updates["status"].(string); ok {
		row.Status = v
	}
	if v, ok := updates["price_id"].(*string); ok {
		row.PriceID = v
	}
	if v, ok := updates["cancel_at_period_end"].(bool); ok {
		row.CancelAtPeriodEnd = v
	}
	if v, ok := updates["current_period_end"].(*time.Time); ok {
		row.CurrentPeriodEnd = v
	}
	return nil
}

type stubFetcher struct {
	sub *stripe.Subscription
	err error
	ids []string
}

func (f *stubFetcher) FetchSubscription(_ context.Context, id string) (*stripe.Subscription, error) {
	f.ids = append(f.ids, id)
	return f.sub, f.err
}

const checkoutEvent = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {
    "id": "cs_1",
    "object": "checkout.session",
    "mode": "subscription",
    "subscription": "sub_1",
    "customer": "cus_1",
    "metadata": {"user_id": "u1", "app_name": "samplefinder"}
  }}
}`

const updatedEvent = `{
  "id": "evt_2",
  "object": "event",
  "type": "customer.subscription.updated",
  "data": {"object": {
    "id": "sub_1",
    "object": "subscription",
    "status": "past_due",
    "cancel_at_period_end": true,
    "current_period_end": 1700000000,
    "items": {"object": "list", "data": [{"id": "si_1", "object": "subscription_item", "price": {"id": "price_plus", "object": "price"}}]},
    "metadata": {"user_id": "u1"}
  }}
}`

const deletedEvent = `{
  "id": "evt_3",
  "object": "event",
  "type": "customer.subscription.deleted",
  "data": {"object": {"id": "sub_1", "object": "subscription", "status": "canceled", "metadata": {"user_id": "u1"}}}
}`

const foreignEvent = `{
  "id": "evt_4",
  "object": "event",
  "type": "customer.subscription.deleted",
  "data": {"object": {"id": "sub_9", "object": "subscription", "metadata": {"user_id": "u1", "app_name": "other-app"}}}
}`

func activeSubscription() *stripe.Subscription {
	return &stripe.Subscription{
		ID:               "sub_1",
		Status:           stripe.SubscriptionStatusActive,
		CurrentPeriodEnd: 1800000000,
		Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{
			{Price: &stripe.Price{ID: "price_pro"}},
		}},
	}
}

func TestProcess_SubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMemorySubscriptions()
	fetcher := &stubFetcher{sub: activeSubscription()}
	p := NewWebhookProcessor(store, fetcher, "")

	res := p.Process(ctx, []byte(checkoutEvent), "")
	require.Equal(t, WebhookResult{OK: true}, res)
	assert.Equal(t, []string{"sub_1"}, fetcher.ids)

	row := store.rows["u1"]
	require.NotNil(t, row)
	assert.Equal(t, "active", row.Status)
	assert.Equal(t, "cus_1", row.StripeCustomerID)
	assert.Equal(t, "sub_1", row.StripeSubscriptionID)
	require.NotNil(t, row.PriceID)
	assert.Equal(t, "price_pro", *row.PriceID)
	require.NotNil(t, row.CurrentPeriodEnd)
	assert.Equal(t, int64(1800000000), row.CurrentPeriodEnd.Unix())

	res = p.Process(ctx, []byte(updatedEvent), "")
	require.True(t, res.OK)
	assert.Equal(t, "past_due", row.Status)
	assert.True(t, row.CancelAtPeriodEnd)
	assert.Equal(t, "price_plus", *row.PriceID)

	res = p.Process(ctx, []byte(deletedEvent), "")
	require.True(t, res.OK)
	assert.Equal(t, "canceled", row.Status)
}

func TestProcess_ForeignAppIsIgnored(t *testing.T) {
	store := newMemorySubscriptions()
	store.rows["u1"] = &model.Subscription{UserID: "u1", Status: "active"}
	p := NewWebhookProcessor(store, &stubFetcher{}, "")

	res := p.Process(context.Background(), []byte(foreignEvent), "")

	assert.Equal(t, WebhookResult{OK: true, Reason: ReasonNotForThisApp}, res)
	assert.Equal(t, "active", store.rows["u1"].Status)
}

func TestProcess_Failures(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, ReasonNotConfigured, NewWebhookProcessor(nil, nil, "").Process(ctx, []byte(deletedEvent), "").Reason)

	p := NewWebhookProcessor(newMemorySubscriptions(), &stubFetcher{}, "")
	assert.Equal(t, WebhookResult{Reason: ReasonInvalidJSON}, p.Process(ctx, []byte("{nope"), ""))

	fetchFails := NewWebhookProcessor(newMemorySubscriptions(), &stubFetcher{err: errors.New("stripe down")}, "")
	assert.Equal(t, WebhookResult{Reason: ReasonError}, fetchFails.Process(ctx, []byte(checkoutEvent), ""))

	store := newMemorySubscriptions()
	store.updateErr = errors.New("db down")
	assert.Equal(t, WebhookResult{Reason: ReasonError}, NewWebhookProcessor(store, &stubFetcher{}, "").Process(ctx, []byte(deletedEvent), ""))
}

func TestProcess_UnhandledEventIsOK(t *testing.T) {
	p := NewWebhookProcessor(newMemorySubscriptions(), &stubFetcher{}, "")
	res := p.Process(context.Background(), []byte(`{"id":"evt_9","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1"}}}`), "")
	assert.Equal(t, WebhookResult{OK: true}, res)
}

func TestProcess_SignatureVerification(t *testing.T) {
	const secret = "whsec_test"
	store := newMemorySubscriptions()
	store.rows["u1"] = &model.Subscription{UserID: "u1", Status: "active"}
	p := NewWebhookProcessor(store, &stubFetcher{}, secret)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(deletedEvent),
		Secret:    secret,
		Timestamp: time.Now(),
	})

	assert.Equal(t, WebhookResult{Reason: ReasonInvalidSignature}, p.Process(context.Background(), []byte(deletedEvent), ""))
	assert.Equal(t, WebhookResult{Reason: ReasonInvalidSignature}, p.Process(context.Background(), []byte(deletedEvent), "t=1,v1=deadbeef"))
	assert.Equal(t, "active", store.rows["u1"].Status)

	res := p.Process(context.Background(), signed.Payload, signed.Header)
	assert.Equal(t, WebhookResult{OK: true}, res)
	assert.Equal(t, "canceled", store.rows["u1"].Status)
}
