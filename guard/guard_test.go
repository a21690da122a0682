package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dshills/watchable/loop"
)

func TestNewAffinity_NilLoop(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected NewAffinity(nil) to panic")
		}
	}()
	NewAffinity(nil)
}

func TestAffinity_OnLoop(t *testing.T) {
	l := loop.New()
	l.Start()
	defer l.Stop(context.Background())

	g := NewAffinity(l)

	ok := make(chan bool, 1)
	l.Post(func() {
		defer func() { ok <- recover() == nil }()
		g.Lock()
		g.Unlock()
	})

	select {
	case passed := <-ok:
		if !passed {
			t.Error("Lock() panicked on the coordination loop")
		}
	case <-time.After(time.Second):
		t.Fatal("loop task was not executed within timeout")
	}
}

func TestAffinity_OffLoop(t *testing.T) {
	l := loop.New()
	l.Start()
	defer l.Stop(context.Background())

	g := NewAffinity(l)

	defer func() {
		if recover() == nil {
			t.Error("expected Lock() to panic off the coordination loop")
		}
	}()
	g.Lock()
}

func TestSpin_LockUnlock(t *testing.T) {
	g := NewSpin()
	g.Lock()
	g.Unlock()
	g.Lock()
	g.Unlock()
}

func TestSpin_MutualExclusion(t *testing.T) {
	g := NewSpin()

	const goroutines = 8
	const increments = 1000

	counter := 0
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				g.Lock()
				counter++
				g.Unlock()
			}
		}()
	}
	wg.Wait()

	if counter != goroutines*increments {
		t.Errorf("expected %d increments, got %d", goroutines*increments, counter)
	}
}
