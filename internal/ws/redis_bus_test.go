package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Rajatg180/issueFlow-Project/internal/app"
)

// Port 9 on localhost has no listener; every connect fails fast. The bus
// must swallow that and keep the caller moving.
func deadBus(t *testing.T) *Bus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cfg := app.Config{RedisAddr: "127.0.0.1:9"}
	return NewBus(ctx, cfg, testLogger())
}

func TestPublish_BusDownIsSilent(t *testing.T) {
	b := deadBus(t)
	defer b.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Fire-and-forget: no error, no panic, bounded wait.
		b.Publish(context.Background(), FanoutEvent{
			Type: EventCommentCreated, ProjectID: "p1", IssueID: "i1",
		})
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Publish blocked on an unavailable bus")
	}
}

func TestSubscribe_StopsOnCancelWhileBusDown(t *testing.T) {
	b := deadBus(t)
	defer b.Close()

	reg := NewRegistry()
	sink := NewBroadcaster(testLogger(), reg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Subscribe(ctx, sink)
	}()

	// Let it hit the retry path at least once, then cancel.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Subscribe did not observe cancellation")
	}
	rooms, _ := reg.Stats()
	assert.Equal(t, 0, rooms)
}
