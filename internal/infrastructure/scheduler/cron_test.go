package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAddRejectsInvalidSpec(t *testing.T) {
	s := New(nil)
	if err := s.Add("sweep", "every hour", func() {}); err == nil {
		t.Fatalf("expected invalid spec error")
	}
	if err := s.Add("sweep", "0 * * * *", func() {}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
}

func TestStopWaitsForRunningJob(t *testing.T) {
	s := New(nil)
	started := make(chan struct{})
	finished := make(chan struct{})
	var once sync.Once
	if err := s.Add("slow", "@every 1s", func() {
		once.Do(func() {
			close(started)
			time.Sleep(50 * time.Millisecond)
			close(finished)
		})
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	s.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case <-finished:
	default:
		t.Fatalf("Stop returned before the running job finished")
	}
}

func TestEveryBuildsIntervalSpec(t *testing.T) {
	spec := Every(15 * time.Minute)
	if spec != "@every 15m0s" {
		t.Fatalf("unexpected spec %q", spec)
	}
	if err := New(nil).Add("stale_recovery", spec, func() {}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
}
