// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockAfterFiresOnlyOnceDue(t *testing.T) {
	clock := Fake(epoch)
	channel := clock.After(30 * time.Second)

	clock.Advance(29 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	clock.Advance(time.Second)
	select {
	case fired := <-channel:
		if want := epoch.Add(30 * time.Second); !fired.Equal(want) {
			t.Errorf("fired at %v, want %v", fired, want)
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
	if count := clock.PendingCount(); count != 0 {
		t.Errorf("PendingCount = %d after firing, want 0", count)
	}
}

func TestFakeClockAfterNonPositive(t *testing.T) {
	clock := Fake(epoch)
	select {
	case <-clock.After(0):
	default:
		t.Fatal("After(0) should be ready immediately")
	}
}

func TestFakeClockTickerReschedules(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for round := range 3 {
		clock.Advance(10 * time.Millisecond)
		select {
		case <-ticker.C:
		default:
			t.Fatalf("round %d: ticker did not fire", round)
		}
	}

	ticker.Stop()
	clock.Advance(10 * time.Millisecond)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeClockWaitForTimers(t *testing.T) {
	clock := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-clock.After(time.Minute)
		close(done)
	}()

	clock.WaitForTimers(1)
	clock.Advance(time.Minute)

	select {
	case <-done:
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("goroutine waiting on After was not released")
	}
}

func TestRealClockAfterNonPositive(t *testing.T) {
	select {
	case <-Real().After(0):
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("Real().After(0) did not fire")
	}
}
