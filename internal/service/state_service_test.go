package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"rmi/internal/domain"
)

func newTestStateService(interval time.Duration) (*StateService, *fakeStateRepo, *fakeEventRepo) {
	states := newFakeStateRepo()
	events := &fakeEventRepo{}
	return NewStateService(zap.NewNop(), states, events, nil, interval), states, events
}

func TestStateService_GetCreatesDefaults(t *testing.T) {
	svc, states, _ := newTestStateService(0)

	st, err := svc.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st.EUser != domain.DefaultEmotion || st.OnboardingComplete || st.Settings != domain.DefaultSettings() {
		t.Fatalf("unexpected defaults: %+v", st)
	}
	if _, ok := states.Stored("u1"); !ok {
		t.Fatalf("expected default state to be persisted")
	}
}

func TestStateService_SetEmotionValidates(t *testing.T) {
	svc, _, _ := newTestStateService(0)
	for _, v := range []int{-1, 101} {
		if _, err := svc.SetEmotion(context.Background(), "u1", v); !errors.Is(err, ErrInvalidEmotion) {
			t.Fatalf("expected ErrInvalidEmotion for %d, got %v", v, err)
		}
	}
	st, err := svc.SetEmotion(context.Background(), "u1", 80)
	if err != nil || st.EUser != 80 {
		t.Fatalf("expected e_user 80, got %+v err=%v", st, err)
	}
}

func TestStateService_DebouncesWrites(t *testing.T) {
	svc, states, _ := newTestStateService(time.Hour)
	ctx := context.Background()

	for _, v := range []int{10, 20, 30} {
		if _, err := svc.SetEmotion(ctx, "u1", v); err != nil {
			t.Fatalf("set emotion: %v", err)
		}
	}
	if states.Updates() != 0 {
		t.Fatalf("expected no writes before flush, got %d", states.Updates())
	}
	st, err := svc.Get(ctx, "u1")
	if err != nil || st.EUser != 30 {
		t.Fatalf("expected pending value visible, got %+v err=%v", st, err)
	}

	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if states.Updates() != 1 {
		t.Fatalf("expected a single write, got %d", states.Updates())
	}
	stored, _ := states.Stored("u1")
	if stored.EUser != 30 {
		t.Fatalf("expected stored 30, got %d", stored.EUser)
	}
}

func TestStateService_TimerFlushes(t *testing.T) {
	svc, states, _ := newTestStateService(10 * time.Millisecond)
	if _, err := svc.SetEmotion(context.Background(), "u1", 42); err != nil {
		t.Fatalf("set emotion: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for states.Updates() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("timer never flushed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	stored, _ := states.Stored("u1")
	if stored.EUser != 42 {
		t.Fatalf("expected 42, got %d", stored.EUser)
	}
}

func TestStateService_SettingsPatch(t *testing.T) {
	svc, _, _ := newTestStateService(0)
	off := false
	st, err := svc.SetSettings(context.Background(), "u1", domain.SettingsPatch{AllowScriptGeneration: &off})
	if err != nil {
		t.Fatalf("set settings: %v", err)
	}
	if st.Settings.AllowScriptGeneration || !st.Settings.AllowContactRecommendation {
		t.Fatalf("unexpected settings: %+v", st.Settings)
	}
}

func TestStateService_CountersAndReset(t *testing.T) {
	svc, _, events := newTestStateService(0)
	ctx := context.Background()

	_ = svc.RecordAISession(ctx, "u1")
	_ = svc.RecordAISession(ctx, "u1")
	if err := svc.RecordRealEvent(ctx, "u1", domain.SourceContactFlow); err != nil {
		t.Fatalf("record real event: %v", err)
	}
	if err := svc.RecordRealEvent(ctx, "u1", "chat"); !errors.Is(err, ErrInvalidEventSource) {
		t.Fatalf("expected ErrInvalidEventSource, got %v", err)
	}

	st, _ := svc.Get(ctx, "u1")
	if st.AISessionCount != 2 || st.RealEventCount != 1 {
		t.Fatalf("unexpected counters: %+v", st)
	}

	if err := svc.ResetCounters(ctx, "u1"); err != nil {
		t.Fatalf("reset counters: %v", err)
	}
	st, _ = svc.Get(ctx, "u1")
	if st.AISessionCount != 0 || st.RealEventCount != 0 {
		t.Fatalf("expected counters reset, got %+v", st)
	}
	kinds := events.Kinds("u1")
	if kinds[len(kinds)-1] != domain.EventReset {
		t.Fatalf("expected reset marker appended, got %v", kinds)
	}
}

func TestStateService_ResetStateDropsPending(t *testing.T) {
	svc, states, _ := newTestStateService(time.Hour)
	ctx := context.Background()
	_ = svc.CompleteOnboarding(ctx, "u1")
	_, _ = svc.SetEmotion(ctx, "u1", 5)

	if err := svc.ResetState(ctx, "u1"); err != nil {
		t.Fatalf("reset state: %v", err)
	}
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	stored, _ := states.Stored("u1")
	if stored.EUser != domain.DefaultEmotion || stored.OnboardingComplete {
		t.Fatalf("expected defaults after reset, got %+v", stored)
	}
}

func TestStateService_CloseWritesImmediately(t *testing.T) {
	svc, states, _ := newTestStateService(time.Hour)
	ctx := context.Background()
	_, _ = svc.SetEmotion(ctx, "u1", 70)
	if err := svc.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	before := states.Updates()
	_, _ = svc.SetEmotion(ctx, "u1", 71)
	if states.Updates() != before+1 {
		t.Fatalf("expected immediate write after close")
	}
}

func TestStateService_InflightFlushStaysVisible(t *testing.T) {
	svc, states, _ := newTestStateService(10 * time.Millisecond)
	states.gate = make(chan struct{})
	states.started = make(chan struct{}, 1)
	ctx := context.Background()

	if _, err := svc.SetEmotion(ctx, "u1", 80); err != nil {
		t.Fatalf("set emotion: %v", err)
	}
	select {
	case <-states.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer flush never started")
	}

	st, err := svc.Get(ctx, "u1")
	if err != nil || st.EUser != 80 {
		t.Fatalf("expected e_user 80 while the write is in flight, got %+v err=%v", st, err)
	}

	done := make(chan error, 1)
	go func() {
		off := false
		_, err := svc.SetSettings(ctx, "u1", domain.SettingsPatch{AllowScriptGeneration: &off})
		done <- err
	}()
	close(states.gate)
	if err := <-done; err != nil {
		t.Fatalf("set settings: %v", err)
	}
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	stored, _ := states.Stored("u1")
	if stored.EUser != 80 || stored.Settings.AllowScriptGeneration {
		t.Fatalf("lost update: stored %+v", stored)
	}
}

func TestStateService_FailedFlushKeepsPending(t *testing.T) {
	svc, states, _ := newTestStateService(time.Hour)
	ctx := context.Background()
	if _, err := svc.SetEmotion(ctx, "u1", 33); err != nil {
		t.Fatalf("set emotion: %v", err)
	}

	states.mu.Lock()
	states.err = errors.New("db down")
	states.mu.Unlock()
	if err := svc.Flush(ctx); err == nil {
		t.Fatalf("expected flush error")
	}
	if st, err := svc.Get(ctx, "u1"); err != nil || st.EUser != 33 {
		t.Fatalf("expected pending value kept after failed write, got %+v err=%v", st, err)
	}

	states.mu.Lock()
	states.err = nil
	states.mu.Unlock()
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if stored, _ := states.Stored("u1"); stored.EUser != 33 {
		t.Fatalf("expected 33 stored on retry, got %d", stored.EUser)
	}
}
