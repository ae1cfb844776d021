package inflight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aiotter/discord-amazon-url-shortener/internal/models"
)

func TestTryClaim(t *testing.T) {
	s := New()

	release, err := s.TryClaim("msg-1")
	if err != nil {
		t.Fatalf("TryClaim() error = %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}

	if _, err := s.TryClaim("msg-1"); !errors.Is(err, models.ErrAlreadyClaimed) {
		t.Errorf("Second TryClaim() error = %v, want ErrAlreadyClaimed", err)
	}

	other, err := s.TryClaim("msg-2")
	if err != nil {
		t.Fatalf("TryClaim() for a different id error = %v", err)
	}
	other()

	release()
	release() // no-op
	if s.Len() != 0 {
		t.Errorf("Len() after release = %d, want 0", s.Len())
	}

	again, err := s.TryClaim("msg-1")
	if err != nil {
		t.Fatalf("TryClaim() after release error = %v", err)
	}
	again()
}

func TestTryClaim_Concurrent(t *testing.T) {
	s := New()
	var winners int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := s.TryClaim("same"); err == nil {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if winners != 1 {
		t.Errorf("Expected exactly 1 winner, got %d", winners)
	}
}
