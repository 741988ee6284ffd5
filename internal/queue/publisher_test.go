package queue

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"
)

// silentBroker accepts TCP connections and never answers the handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

func TestPublishGivesUpAtDeadline(t *testing.T) {
	p := NewPublisher("amqp://guest:guest@"+silentBroker(t)+"/", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Publish(ctx, ReservationEvent{Type: EventReservationConfirmed})
	if err == nil {
		t.Fatal("Publish() to a silent broker succeeded")
	}
	if took := time.Since(start); took > 5*time.Second {
		t.Errorf("Publish() returned after %v, want about 200ms", took)
	}
}
