package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/push"
	"go.uber.org/zap"
)

type fakeNotifications struct {
	mu      sync.Mutex
	rows    []models.Notification
	failFor map[uint]bool
	nextID  uint
}

func (f *fakeNotifications) CreateNotification(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[n.ReceiverID] {
		return errors.New("insert failed")
	}
	f.nextID++
	n.ID = f.nextID
	f.rows = append(f.rows, *n)
	return nil
}

type fakeSubscriptions struct {
	mu      sync.Mutex
	byUser  map[uint][]models.PushSubscription
	deleted []string
}

func (f *fakeSubscriptions) ListByUser(_ context.Context, userID uint) ([]models.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.PushSubscription(nil), f.byUser[userID]...), nil
}

func (f *fakeSubscriptions) DeleteByEndpoint(_ context.Context, endpoint string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, endpoint)
	return 1, nil
}

type fakeTransport struct {
	mu     sync.Mutex
	errFor map[string]error
	sent   []push.Message
	delay  map[string]time.Duration
}

func (f *fakeTransport) Send(ctx context.Context, sub models.PushSubscription, msg push.Message) error {
	if d := f.delay[sub.Endpoint]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor[sub.Endpoint]; err != nil {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeRealtime struct {
	mu        sync.Mutex
	published map[uint]int
}

func (f *fakeRealtime) Publish(_ context.Context, userID uint, _ *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.published == nil {
		f.published = map[uint]int{}
	}
	f.published[userID]++
	return errors.New("broker offline")
}

func (f *fakeRealtime) PublishRead(context.Context, uint, uint) error { return nil }

func subFor(userID uint, endpoint string) models.PushSubscription {
	return models.PushSubscription{UserID: userID, Endpoint: endpoint, Provider: models.PushProviderWebPush}
}

func TestDeliverToleratesPushFailures(t *testing.T) {
	t.Parallel()
	notifications := &fakeNotifications{}
	subs := &fakeSubscriptions{byUser: map[uint][]models.PushSubscription{}}
	transport := &fakeTransport{errFor: map[string]error{}}
	rt := &fakeRealtime{}

	recipients := []uint{1, 2, 3, 4, 5}
	for _, id := range recipients {
		endpoint := "https://push.example.com/" + string(rune('a'+id))
		subs.byUser[id] = []models.PushSubscription{subFor(id, endpoint)}
		if id == 2 || id == 4 {
			transport.errFor[endpoint] = errors.New("push service unavailable")
		}
	}

	engine := NewEngine(notifications, subs, transport, rt, zap.NewNop(), EngineConfig{Concurrency: 3, PushTimeout: time.Second})
	payload := Compose(models.NotificationEventNew, Context{EventID: 1, EventTitle: "River clean-up"})

	stats := engine.Deliver(context.Background(), payload, recipients)

	want := models.DeliveryStats{Total: 5, WithPush: 3, WithoutPush: 2, DBSaved: 5, Failed: 0, PushFailed: 2}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
	if len(notifications.rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(notifications.rows))
	}
	for _, id := range recipients {
		if rt.published[id] != 1 {
			t.Fatalf("user %d published %d times", id, rt.published[id])
		}
	}
}

func TestDeliverIsolatesPersistenceFailures(t *testing.T) {
	t.Parallel()
	notifications := &fakeNotifications{failFor: map[uint]bool{2: true}}
	subs := &fakeSubscriptions{byUser: map[uint][]models.PushSubscription{
		2: {subFor(2, "https://push.example.com/two")},
	}}
	transport := &fakeTransport{}
	rt := &fakeRealtime{}

	engine := NewEngine(notifications, subs, transport, rt, zap.NewNop(), EngineConfig{Concurrency: 2})
	stats := engine.Deliver(context.Background(), Compose(models.NotificationGeneral, Context{Title: "t", Message: "m"}), []uint{1, 2, 3})

	if stats.Failed != 1 || stats.DBSaved != 2 || stats.WithoutPush != 2 || stats.WithPush != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(transport.sent) != 0 {
		t.Fatal("failed recipient must not be pushed")
	}
	if rt.published[2] != 0 {
		t.Fatal("failed recipient must not be published")
	}
}

func TestDeliverDeduplicatesRecipients(t *testing.T) {
	t.Parallel()
	notifications := &fakeNotifications{}
	engine := NewEngine(notifications, &fakeSubscriptions{}, &fakeTransport{}, nil, zap.NewNop(), EngineConfig{})

	stats := engine.Deliver(context.Background(), Compose(models.NotificationGeneral, Context{}), []uint{7, 7, 0, 8})
	if stats.Total != 2 || len(notifications.rows) != 2 {
		t.Fatalf("stats = %+v rows = %d", stats, len(notifications.rows))
	}
}

func TestDeliverRemovesGoneSubscriptions(t *testing.T) {
	t.Parallel()
	subs := &fakeSubscriptions{byUser: map[uint][]models.PushSubscription{
		1: {subFor(1, "https://push.example.com/old"), subFor(1, "https://push.example.com/new")},
	}}
	transport := &fakeTransport{errFor: map[string]error{"https://push.example.com/old": push.ErrSubscriptionGone}}
	engine := NewEngine(&fakeNotifications{}, subs, transport, nil, zap.NewNop(), EngineConfig{})

	stats := engine.Deliver(context.Background(), Compose(models.NotificationGeneral, Context{}), []uint{1})

	if stats.WithPush != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(subs.deleted) != 1 || subs.deleted[0] != "https://push.example.com/old" {
		t.Fatalf("deleted = %v", subs.deleted)
	}
}

func TestDeliverSlowPushTimesOut(t *testing.T) {
	t.Parallel()
	subs := &fakeSubscriptions{byUser: map[uint][]models.PushSubscription{
		1: {subFor(1, "https://push.example.com/slow")},
		2: {subFor(2, "https://push.example.com/fast")},
	}}
	transport := &fakeTransport{delay: map[string]time.Duration{"https://push.example.com/slow": 5 * time.Second}}
	engine := NewEngine(&fakeNotifications{}, subs, transport, nil, zap.NewNop(), EngineConfig{Concurrency: 2, PushTimeout: 50 * time.Millisecond})

	start := time.Now()
	stats := engine.Deliver(context.Background(), Compose(models.NotificationGeneral, Context{}), []uint{1, 2})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("deliver took %v, slow push was not bounded", elapsed)
	}
	if stats.WithPush != 1 || stats.PushFailed != 1 || stats.DBSaved != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestDeliverEmptyAudience(t *testing.T) {
	t.Parallel()
	engine := NewEngine(&fakeNotifications{}, &fakeSubscriptions{}, nil, nil, zap.NewNop(), EngineConfig{})
	if stats := engine.Deliver(context.Background(), Payload{}, nil); stats != (models.DeliveryStats{}) {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]uint{3, 1, 3, 0, 2, 1}, []uint{2})
	want := []uint{3, 1}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
