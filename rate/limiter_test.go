package rate

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func newLimiter(burst int, interval, expiry time.Duration) (*Limiter, *clock) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(burst, interval, expiry)
	l.now = clk.now
	return l, clk
}

func TestLimiter(t *testing.T) {
	interval := 10 * time.Millisecond
	l, clk := newLimiter(1, interval, time.Minute)

	client := "127.0.0.1"
	expected := []bool{true, false, true, true, false, false}
	waits := []time.Duration{time.Millisecond, interval, interval, time.Millisecond, time.Millisecond, time.Millisecond}
	for i, exp := range expected {
		if got := l.Allow(client); got != exp {
			t.Fatalf("iteration %d: expected %v, but got %v", i, exp, got)
		}
		clk.add(waits[i])
	}
}

func TestLimiterWithBurst(t *testing.T) {
	interval := 100 * time.Millisecond
	l, clk := newLimiter(10, interval, time.Minute)

	client := "127.0.0.1"
	for i := 0; i < 10; i++ {
		if !l.Allow(client) {
			t.Fatalf("call %d of the burst refused", i)
		}
	}
	if l.Allow(client) {
		t.Fatal("expected burst exhausted")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatal("expected another client to have its own bucket")
	}

	clk.add(interval)
	if !l.Allow(client) {
		t.Fatal("expected one token back after an interval")
	}
	if l.Allow(client) {
		t.Fatal("expected a single token back")
	}
}

func TestPrune(t *testing.T) {
	l, clk := newLimiter(1, time.Second, time.Minute)

	l.Allow("a")
	clk.add(30 * time.Second)
	l.Allow("b")
	clk.add(45 * time.Second)

	if n := l.Prune(); n != 1 {
		t.Fatalf("expected one idle key pruned, got %d", n)
	}
	if _, ok := l.clients["b"]; !ok {
		t.Fatal("expected recent key kept")
	}
}
