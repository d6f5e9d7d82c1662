package sender

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"wavespush/internal/config"
	"wavespush/internal/models"
)

func TestBackoff_Formula(t *testing.T) {
	initial := 5 * time.Second
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 5 * time.Second},
		{1, 15 * time.Second},
		{2, 45 * time.Second},
		{3, 135 * time.Second},
	}
	for _, tt := range tests {
		if got := Backoff(initial, 3.0, tt.attempts); got != tt.want {
			t.Errorf("Backoff(%d) = %s, want %s", tt.attempts, got, tt.want)
		}
	}
}

func TestBackoff_Monotone(t *testing.T) {
	prev := time.Duration(0)
	for n := 0; n < 10; n++ {
		got := Backoff(time.Second, 1.5, n)
		if got < prev {
			t.Fatalf("backoff decreased at attempt %d: %s < %s", n, got, prev)
		}
		prev = got
	}
}

// fakeQueue keeps a single message and mimics the dequeue predicate of the
// real repository: due rows under the attempt cap only.
type fakeQueue struct {
	mu      sync.Mutex
	msg     *models.QueuedMessage
	fcmUID  string
	now     func() time.Time
	acked   []int64
	nacked  []string
	drained chan struct{}
}

func (q *fakeQueue) DequeueDue(_ context.Context, maxAttempts int) (*models.DueMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.msg == nil || int(q.msg.SendAttempts) >= maxAttempts {
		if q.drained != nil {
			close(q.drained)
			q.drained = nil
		}
		return nil, nil
	}
	if q.msg.ScheduledFor.After(q.now()) {
		return nil, nil
	}
	copied := *q.msg
	return &models.DueMessage{Message: copied, FCMUID: q.fcmUID}, nil
}

func (q *fakeQueue) Ack(_ context.Context, uid int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, uid)
	q.msg = nil
	return nil
}

func (q *fakeQueue) Nack(_ context.Context, uid int64, retryAt time.Time, sendErr string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msg.ScheduledFor = retryAt
	q.msg.SendAttempts++
	q.msg.SendError = &sendErr
	q.nacked = append(q.nacked, sendErr)
	return nil
}

type flakyGateway struct {
	mu       sync.Mutex
	failures int
	sent     []string
}

func (g *flakyGateway) Send(_ context.Context, to, title, body string, data json.RawMessage) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failures > 0 {
		g.failures--
		return errors.New("gateway unavailable")
	}
	g.sent = append(g.sent, to)
	return nil
}

func testSendConfig() config.SendConfig {
	return config.SendConfig{
		EmptyQueuePollPeriod:   time.Millisecond,
		BackoffInitialInterval: time.Millisecond,
		BackoffMultiplier:      2.0,
		MaxAttempts:            5,
		ClickAction:            "open",
	}
}

func TestSender_RetriesThenDelivers(t *testing.T) {
	queue := &fakeQueue{
		msg:     &models.QueuedMessage{UID: 7, Title: "t", Body: "b", ScheduledFor: time.Now().Add(-time.Second)},
		fcmUID:  "device-token",
		now:     time.Now,
		drained: make(chan struct{}),
	}
	gateway := &flakyGateway{failures: 2}
	s := New(queue, gateway, testSendConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	select {
	case <-queue.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("sender did not drain the queue")
	}
	cancel()
	<-done

	queue.mu.Lock()
	defer queue.mu.Unlock()
	if len(queue.nacked) != 2 {
		t.Errorf("expected 2 nacks, got %d", len(queue.nacked))
	}
	if len(queue.acked) != 1 || queue.acked[0] != 7 {
		t.Errorf("expected ack of message 7, got %v", queue.acked)
	}
	if queue.msg != nil {
		t.Error("message should be deleted after ack")
	}
	if len(gateway.sent) != 1 || gateway.sent[0] != "device-token" {
		t.Errorf("expected one delivery to device-token, got %v", gateway.sent)
	}
}

func TestSender_ExhaustedMessageIsLeftAlone(t *testing.T) {
	cfg := testSendConfig()
	cfg.MaxAttempts = 2
	queue := &fakeQueue{
		msg:     &models.QueuedMessage{UID: 9, ScheduledFor: time.Now().Add(-time.Second)},
		fcmUID:  "dev",
		now:     time.Now,
		drained: make(chan struct{}),
	}
	gateway := &flakyGateway{failures: 100}
	s := New(queue, gateway, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	select {
	case <-queue.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("sender did not stop retrying the exhausted message")
	}
	cancel()
	<-done

	queue.mu.Lock()
	defer queue.mu.Unlock()
	if queue.msg == nil {
		t.Fatal("exhausted message must stay in the table")
	}
	if int(queue.msg.SendAttempts) != cfg.MaxAttempts {
		t.Errorf("expected %d attempts recorded, got %d", cfg.MaxAttempts, queue.msg.SendAttempts)
	}
	if queue.msg.SendError == nil || *queue.msg.SendError == "" {
		t.Error("expected the last error recorded on the row")
	}
	if len(queue.acked) != 0 {
		t.Errorf("nothing should be acked, got %v", queue.acked)
	}
}
