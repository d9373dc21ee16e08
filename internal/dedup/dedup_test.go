package dedup

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMarkIfNew_FirstWins(t *testing.T) {
	g := New(time.Hour)

	if !g.MarkIfNew("wamid.1") {
		t.Error("first presentation should return true")
	}
	if g.MarkIfNew("wamid.1") {
		t.Error("second presentation should return false")
	}
	if !g.MarkIfNew("wamid.2") {
		t.Error("a different id should return true")
	}
}

func TestMarkIfNew_Concurrent(t *testing.T) {
	g := New(time.Hour)

	const goroutines = 64
	var wins int64
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.MarkIfNew("wamid.contested") {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("exactly one goroutine should win the gate, got %d", wins)
	}
}

func TestMarkIfNew_ManyIDsConcurrent(t *testing.T) {
	g := New(time.Hour)

	const ids = 50
	const callersPerID = 8
	var wins int64
	var wg sync.WaitGroup

	for i := 0; i < ids; i++ {
		id := fmt.Sprintf("wamid.%d", i)
		for j := 0; j < callersPerID; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if g.MarkIfNew(id) {
					atomic.AddInt64(&wins, 1)
				}
			}()
		}
	}
	wg.Wait()

	if wins != ids {
		t.Errorf("want one win per id (%d), got %d", ids, wins)
	}
	if g.Len() != ids {
		t.Errorf("gate should track %d ids, got %d", ids, g.Len())
	}
}

func TestMarkIfNew_TTLExpiry(t *testing.T) {
	g := New(20 * time.Millisecond)

	if !g.MarkIfNew("wamid.ttl") {
		t.Fatal("first presentation should return true")
	}
	time.Sleep(40 * time.Millisecond)
	if !g.MarkIfNew("wamid.ttl") {
		t.Error("id should be admitted again after the TTL window")
	}
}

func TestMarkIfNew_NoExpiry(t *testing.T) {
	g := New(0)

	if !g.MarkIfNew("wamid.forever") {
		t.Fatal("first presentation should return true")
	}
	if g.MarkIfNew("wamid.forever") {
		t.Error("id must stay marked when eviction is disabled")
	}
}
