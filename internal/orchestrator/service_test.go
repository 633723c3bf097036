package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"psyche/internal/bus"
	"psyche/internal/domain"
	"psyche/internal/dream"
	"psyche/internal/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*Service, *bus.InMemory) {
	t.Helper()
	b := bus.NewInMemory()
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("start bus: %v", err)
	}
	topics := bus.Topics{Prefix: "psyche"}
	mct := memory.NewManager()
	engine := dream.New(dream.DefaultConfig(), mct, dream.RealClock, testLogger())
	return New(b, topics, DefaultConfig(), mct, engine, testLogger()), b
}

func calmContext() domain.Context {
	return domain.Context{
		Physical:  domain.PhysicalSensors{Temperature: 0.5, Volume: 0.2, Luminosity: 0.3, Gyro: 0.1},
		Technical: domain.TechnicalState{CPUTemp: 40, GPUTemp: 45, CPULoad: 0.2, RAMUsage: 0.3, Stability: 0.9},
		Feedback:  domain.ExternalFeedback{PositiveValidation: true},
	}
}

func TestTickPublishesContextualisedState(t *testing.T) {
	svc, b := newTestService(t)

	var received []byte
	if err := b.Subscribe(svc.topics.ContextualisedState(), func(p []byte) { received = p }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	svc.SetRawEmotions(domain.EmotionVector{})
	svc.SetContext(calmContext())

	if err := svc.Tick(context.Background(), 0.1); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if received == nil {
		t.Fatalf("expected a contextualised-state publish")
	}

	var msg bus.ContextualisedStateMessage
	if err := bus.Decode(received, &msg); err != nil {
		t.Fatalf("decode published message: %v", err)
	}
	for i, v := range msg.EmotionsContextualisees {
		if v < 0 || v > 1 {
			t.Fatalf("emotion %d out of range: %f", i, v)
		}
	}
}

func TestTickWithoutInputsIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.Tick(context.Background(), 0.1); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if svc.metrics.samples() != 1 {
		t.Fatalf("expected a recorded sample even for a no-op tick")
	}
}

func TestEmergencyTickShortCircuitsAndPublishesAlert(t *testing.T) {
	svc, b := newTestService(t)

	var alerted bool
	if err := b.Subscribe(svc.topics.Alert(), func([]byte) { alerted = true }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var hot domain.EmotionVector
	fearIdx, _ := domain.EmotionIndex("Fear")
	hot[fearIdx] = 0.99

	svc.SetRawEmotions(hot)
	svc.SetContext(calmContext())

	if err := svc.Tick(context.Background(), 0.1); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !alerted {
		t.Fatalf("expected an alert publish when an emotion exceeds the adaptive threshold")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	svc, _ := newTestService(t)
	svc.cfg.UpdateFrequencyHz = 1000

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	svc.Run(ctx)
}
