package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func noop(context.Context) error { return nil }

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func jobStatus(t *testing.T, s *Scheduler, name string) JobStatus {
	t.Helper()
	for _, st := range s.Status() {
		if st.Name == name {
			return st
		}
	}
	t.Fatalf("job %s not found in status", name)
	return JobStatus{}
}

func TestAdd(t *testing.T) {
	s := New()

	if err := s.Add("token-refresh", "0 2 * * *", noop); err != nil {
		t.Errorf("Add() with valid cron = %v, want nil", err)
	}
	if err := s.Add("every", "@every 30m", noop); err != nil {
		t.Errorf("Add() with descriptor = %v, want nil", err)
	}

	s.mu.RLock()
	n := len(s.jobs)
	s.mu.RUnlock()
	if n != 2 {
		t.Errorf("jobs = %d, want 2", n)
	}
}

func TestAddInvalidCron(t *testing.T) {
	s := New()
	if err := s.Add("token-refresh", "invalid cron", noop); err == nil {
		t.Error("Add() with invalid cron = nil, want error")
	}
}

func TestAddReplacesExisting(t *testing.T) {
	s := New()

	if err := s.Add("token-refresh", "0 2 * * *", noop); err != nil {
		t.Fatalf("Add() = %v", err)
	}
	s.mu.RLock()
	firstID := s.jobs["token-refresh"].entry
	s.mu.RUnlock()

	if err := s.Add("token-refresh", "0 3 * * *", noop); err != nil {
		t.Fatalf("Add() replacement = %v", err)
	}
	s.mu.RLock()
	secondID := s.jobs["token-refresh"].entry
	s.mu.RUnlock()

	if firstID == secondID {
		t.Error("entry ID was not updated after replacement")
	}
	if got := jobStatus(t, s, "token-refresh").Schedule; got != "0 3 * * *" {
		t.Errorf("Schedule = %q, want replacement", got)
	}
}

func TestRemove(t *testing.T) {
	s := New()
	if err := s.Add("token-refresh", "0 2 * * *", noop); err != nil {
		t.Fatalf("Add: %v", err)
	}
	s.Remove("token-refresh")
	s.Remove("nonexistent")

	if len(s.Status()) != 0 {
		t.Error("job still exists after Remove()")
	}
}

func TestIsRunning(t *testing.T) {
	s := New()

	if s.IsRunning() {
		t.Error("IsRunning() = true before Start()")
	}
	s.Start()
	if !s.IsRunning() {
		t.Error("IsRunning() = false after Start()")
	}

	ctx := s.Stop()
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop()")
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("Stop() did not complete in time")
	}
}

func TestStopCancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	s := New()
	err := s.Add("token-refresh", "0 0 1 1 *", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Trigger("token-refresh"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("job did not start")
	}

	ctx := s.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not complete after cancelling job")
	}

	if jobStatus(t, s, "token-refresh").LastError == "" {
		t.Error("expected error after cancelled job")
	}
}

func TestTriggerPreventsOverlap(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	s := New()
	err := s.Add("token-refresh", "0 0 1 1 *", func(ctx context.Context) error {
		calls.Add(1)
		<-release
		return nil
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.Trigger("token-refresh"); err != nil {
		t.Fatalf("Trigger() = %v", err)
	}
	if err := s.Trigger("token-refresh"); err == nil {
		t.Error("Trigger() while running = nil, want error")
	}

	close(release)
	waitFor(t, func() bool { return !jobStatus(t, s, "token-refresh").Running })

	if calls.Load() != 1 {
		t.Errorf("job called %d times, want 1", calls.Load())
	}
}

func TestTriggerUnknown(t *testing.T) {
	s := New()
	if err := s.Trigger("missing"); err == nil {
		t.Error("Trigger() for unknown job = nil, want error")
	}
}

func TestStatus(t *testing.T) {
	s := New()
	if err := s.Add("b", "0 2 * * *", noop); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("a", "0 3 * * *", noop); err != nil {
		t.Fatalf("Add: %v", err)
	}
	s.Start()
	defer s.Stop()

	statuses := s.Status()
	if len(statuses) != 2 {
		t.Fatalf("len(Status()) = %d, want 2", len(statuses))
	}
	if statuses[0].Name != "a" || statuses[1].Name != "b" {
		t.Errorf("status order = %s, %s; want a, b", statuses[0].Name, statuses[1].Name)
	}
	if statuses[0].Running {
		t.Error("status.Running = true, want false")
	}
	if statuses[0].NextRun.IsZero() {
		t.Error("status.NextRun is zero")
	}
}

func TestStatusAfterRun(t *testing.T) {
	s := New()
	if err := s.Add("ok", "0 0 1 1 *", noop); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("bad", "0 0 1 1 *", func(context.Context) error { return errors.New("refresh failed") }); err != nil {
		t.Fatalf("Add: %v", err)
	}
	for _, name := range []string{"ok", "bad"} {
		if err := s.Trigger(name); err != nil {
			t.Fatalf("Trigger(%s): %v", name, err)
		}
	}

	waitFor(t, func() bool {
		return !jobStatus(t, s, "ok").LastRun.IsZero() && jobStatus(t, s, "bad").LastError != ""
	})

	if got := jobStatus(t, s, "ok").LastError; got != "" {
		t.Errorf("ok LastError = %q, want empty", got)
	}
	bad := jobStatus(t, s, "bad")
	if bad.LastError != "refresh failed" {
		t.Errorf("bad LastError = %q", bad.LastError)
	}
	if !bad.LastRun.IsZero() {
		t.Error("LastRun should stay zero after a failed run")
	}
}

func TestTriggerAfterStop(t *testing.T) {
	s := New()
	if err := s.Add("token-refresh", "0 0 1 1 *", noop); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ctx := s.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("Stop() did not complete in time")
	}

	if err := s.Trigger("token-refresh"); err == nil {
		t.Error("Trigger() after Stop() = nil, want error")
	}
}

func TestValidateCronExpr(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 2 * * *", false},
		{"*/15 * * * *", false},
		{"@every 45m", false},
		{"@hourly", false},
		{"invalid", true},
		{"* * * * * *", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := ValidateCronExpr(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCronExpr(%q) error = %v, wantErr = %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}
