package infra

import (
	"testing"
	"time"
)

func TestManualClock_FiresInDeadlineOrder(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	var order []string
	c.AfterFunc(300*time.Millisecond, func() { order = append(order, "debounce") })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, "first") })
	stopped := c.AfterFunc(200*time.Millisecond, func() { order = append(order, "stopped") })

	if !stopped.Stop() {
		t.Error("Stop on a pending timer should return true")
	}
	if stopped.Stop() {
		t.Error("second Stop should return false")
	}

	c.Advance(250 * time.Millisecond)
	if len(order) != 1 || order[0] != "first" {
		t.Fatalf("Expected [first], got %v", order)
	}
	if c.Pending() != 1 {
		t.Errorf("Expected 1 pending timer, got %d", c.Pending())
	}

	c.Advance(50 * time.Millisecond)
	if len(order) != 2 || order[1] != "debounce" {
		t.Fatalf("Expected [first debounce], got %v", order)
	}
	if !c.Now().Equal(start.Add(300 * time.Millisecond)) {
		t.Errorf("unexpected now %s", c.Now())
	}
}

func TestManualClock_CallbackSchedulesTimer(t *testing.T) {
	c := NewManualClock(time.Unix(0, 0))
	fired := 0
	var tick func()
	tick = func() {
		fired++
		c.AfterFunc(time.Second, tick)
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(3500 * time.Millisecond)
	if fired != 3 {
		t.Errorf("Expected 3 ticks, got %d", fired)
	}
}
