package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestAfter_Fires(t *testing.T) {
	s := New(nil)
	done := make(chan struct{})
	s.After("job", 10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not fire")
	}
	if s.Pending() != 0 {
		t.Errorf("expected 0 pending jobs, got %d", s.Pending())
	}
}

func TestCancel(t *testing.T) {
	s := New(nil)
	var fired atomic.Bool
	s.After("job", 20*time.Millisecond, func() { fired.Store(true) })

	if !s.Cancel("job") {
		t.Fatal("expected Cancel to find the job")
	}
	time.Sleep(50 * time.Millisecond)
	if fired.Load() {
		t.Error("cancelled job fired anyway")
	}
	if s.Cancel("job") {
		t.Error("second Cancel should report nothing pending")
	}
}

func TestAfter_ReplacesSameID(t *testing.T) {
	s := New(nil)
	var first, second atomic.Bool
	s.After("job", 10*time.Millisecond, func() { first.Store(true) })
	s.After("job", 10*time.Millisecond, func() { second.Store(true) })

	time.Sleep(50 * time.Millisecond)
	if first.Load() {
		t.Error("replaced job fired")
	}
	if !second.Load() {
		t.Error("replacement job did not fire")
	}
}

func TestAfter_PanicRecovered(t *testing.T) {
	s := New(nil)
	done := make(chan struct{})
	s.After("boom", time.Millisecond, func() {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
	// A follow-up job must still work after a panic.
	ok := make(chan struct{})
	s.After("ok", time.Millisecond, func() { close(ok) })
	select {
	case <-ok:
	case <-time.After(time.Second):
		t.Fatal("scheduler dead after panic")
	}
}

func TestEvery_InvalidSpec(t *testing.T) {
	s := New(nil)
	if err := s.Every("not a cron spec", func() {}); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}
