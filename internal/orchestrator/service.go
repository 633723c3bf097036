package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"psyche/internal/amygdala"
	"psyche/internal/bus"
	"psyche/internal/contextualiser"
	"psyche/internal/domain"
	"psyche/internal/dream"
	"psyche/internal/gradient"
	"psyche/internal/memory"
	"psyche/internal/phase"
	"psyche/internal/updater"
)

// Service is the Pipeline Orchestrator (4.H). It owns the two
// single-lock shared buffers named in §5 ("latest raw emotions",
// "latest context"), the phase detector, the memory buffer, the dream
// engine, and the running affective state, and runs the strict
// A->B->C->D->E->F->G tick sequence against them.
type Service struct {
	bus    bus.Bus
	topics bus.Topics
	cfg    Config
	logger *slog.Logger

	phaseDetector *phase.Detector
	memMgr        *memory.Manager
	dreamEngine   *dream.Engine

	mu            sync.Mutex
	latestRaw     domain.EmotionVector
	hasRaw        bool
	latestContext domain.Context
	hasContext    bool

	contextPrev   contextualiser.PrevTick
	emotionState  domain.EmotionVector
	emotionGlobal float64
	wisdom        float64

	metrics ringMetrics

	sink DreamSink
}

// DreamSink persists a dream command durably, alongside the bus
// publish. Optional: a Service with no sink configured just publishes.
type DreamSink interface {
	Apply(ctx context.Context, cmd domain.DreamCommand, nowMS int64) error
}

// SetSink attaches the long-term memory store so every dream command
// drained from the engine is persisted as well as published.
func (s *Service) SetSink(sink DreamSink) { s.sink = sink }

// New wires every subsystem together. mct and dreamEngine are
// constructed by the caller (cmd/affectd) so they can be shared with
// any HTTP introspection surface without reaching back into Service's
// internals.
func New(b bus.Bus, topics bus.Topics, cfg Config, mct *memory.Manager, dreamEngine *dream.Engine, logger *slog.Logger) *Service {
	return &Service{
		bus:           b,
		topics:        topics,
		cfg:           cfg,
		logger:        logger,
		phaseDetector: phase.New(phaseScoreDefinitions(), domain.PhaseSerenite, time.Now()),
		memMgr:        mct,
		dreamEngine:   dreamEngine,
	}
}

// SetRawEmotions feeds the latest upstream regressor output. Called from
// the raw-emotions bus subscription.
func (s *Service) SetRawEmotions(e domain.EmotionVector) {
	s.mu.Lock()
	s.latestRaw = e
	s.hasRaw = true
	s.mu.Unlock()
}

// SetContext feeds the latest sensor context. Called from the context
// bus subscription.
func (s *Service) SetContext(c domain.Context) {
	s.mu.Lock()
	s.latestContext = c
	s.hasContext = true
	s.mu.Unlock()
}

func (s *Service) snapshot() (domain.EmotionVector, domain.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestRaw, s.latestContext, s.hasRaw && s.hasContext
}

// Tick runs one full pipeline step (§4.H). It is safe to call from a
// single processing goroutine only; the orchestrator does not
// serialize concurrent Tick calls against each other.
func (s *Service) Tick(ctx context.Context, deltaT float64) error {
	started := time.Now()
	defer func() { s.metrics.record(time.Since(started)) }()

	raw, sensorCtx, ok := s.snapshot()
	if !ok {
		return nil
	}

	// Step 1-2: contextualise + classify danger (4.A, 4.B).
	now := float64(time.Now().Unix())
	result, err := contextualiser.Contextualise(raw, sensorCtx, s.cfg.GradientWeights, s.cfg.ContextThresholds, s.cfg.ContextCoefficients, s.contextPrev, now)
	if err != nil {
		s.logger.Warn("contextualise failed, dropping tick", "error", err)
		return nil
	}
	s.contextPrev = result.Prev
	cx := result.State

	// Step 3: detect phase on the contextualised vector (4.C).
	activePhase := s.phaseDetector.Detect(cx.Emotions, time.Now())
	phaseCfg := s.cfg.PhaseConfigs[activePhase]

	// Step 4: retrieve top-k memories + compute influence (4.E).
	memories := s.memMgr.Query(activePhase, cx.Emotions, s.cfg.MemoryQueryTopK)
	memoryInfluence := memory.ComputeInfluences(memories, cx.Emotions, phaseCfg.Delta)

	// Step 5: emergency short-circuit (4.F).
	gEnv := gradient.Environmental(s.cfg.GradientWeights, sensorCtx.Physical)
	gSys := gradient.SystemStress(s.cfg.GradientWeights, sensorCtx.Technical)
	alertThreshold := gradient.AdaptiveAlertThreshold(s.cfg.GradientWeights, cx.DangerGradient)
	controller := amygdala.New(alertThreshold)

	if controller.Check(cx.Emotions, memories) {
		gradients := map[string]float64{"environmental": gEnv, "system_stress": gSys, "global": cx.DangerGradient}
		resp := controller.Trigger(cx.DangerLevel, gradients)
		s.publishAlert(cx, resp)

		gradientCritical := cx.DangerLevel >= domain.DangerCritical
		if mem, created := s.memMgr.CreatePotentialTrauma(uuid.NewString(), activePhase, cx.AlertFlag, cx.Emotions, gradientCritical, time.Now().UnixMilli()); created {
			s.logger.Info("potential trauma recorded", "id", mem.ID)
		}
		// The alert still reaches the Dream Engine so a running dream
		// cycle is interrupted.
		s.dreamEngine.Tick(s.emotionState, activePhase, true)
		return nil
	}

	// Step 6: update emotions (4.D).
	var memVectors []domain.EmotionVector
	for _, m := range memories {
		memVectors = append(memVectors, m.Vector)
	}
	variance := updater.GlobalVariance(s.emotionState, memVectors)

	next := updater.Update(s.emotionState, updater.Tick{
		Coeffs:          phaseCfg,
		FeedbackTotal:   feedbackTotal(sensorCtx.Feedback),
		MemoryInfluence: memoryInfluence,
		ContextDrive:    cx.Emotions,
		DecayK:          0.05,
		Wisdom:          s.wisdom,
		Trend:           memoryInfluence,
		DeltaT:          deltaT,
	})
	s.emotionState = next
	s.emotionGlobal = updater.GlobalEnergy(next, s.emotionGlobal, variance)

	// Step 7: update wisdom.
	if activePhase == domain.PhasePeur {
		s.wisdom = domain.Clamp01(s.wisdom * 0.95)
	} else {
		s.wisdom = domain.Clamp01(s.wisdom + phaseCfg.LearningRate*0.001)
	}

	// Step 8: phase-specific fear-loop handling.
	s.applyFearLoop(activePhase, time.Now())

	// Step 9: auto-memory recording.
	if s.emotionState.Mean() > s.cfg.AutoMemoryThreshold {
		s.memMgr.Record(domain.Memory{
			ID:         uuid.NewString(),
			Type:       domain.MemoryAutobiographic,
			ContextTag: cx.ContextLabel,
			Vector:     s.emotionState,
		}, time.Now().UnixMilli())
	}

	// Step 10: publish output.
	s.publishContextualisedState(cx)

	// Step 11: deliver tick to the Dream Engine.
	s.dreamEngine.Tick(s.emotionState, activePhase, cx.AlertFlag)

	return nil
}

// applyFearLoop implements §4.H step 8: sustained PEUR dwell decays the
// Fear/Horror indices, and a long stalemate forces a transition to
// ANXIETE.
func (s *Service) applyFearLoop(activePhase domain.Phase, now time.Time) {
	if activePhase != domain.PhasePeur {
		return
	}
	dwell := s.phaseDetector.DwellDuration(now)

	fearIdx, _ := domain.EmotionIndex("Fear")
	horrorIdx, _ := domain.EmotionIndex("Horror")

	if dwell.Seconds() > s.cfg.FearDwellSlowSeconds {
		s.emotionState[fearIdx] *= 0.95
		s.emotionState[horrorIdx] *= 0.95
	}
	if dwell.Seconds() > s.cfg.FearDwellForceSeconds &&
		s.emotionState[fearIdx] < 0.6 && s.emotionState[horrorIdx] < 0.6 {
		s.phaseDetector.ForceTransition(domain.PhaseAnxiete, "sustained fear plateau", now)
	}
}

func feedbackTotal(f domain.ExternalFeedback) float64 {
	var total float64
	if f.PositiveValidation {
		total += 0.3
	}
	if f.Encouragement {
		total += 0.2
	}
	if f.ExternalAlert {
		total -= 0.4
	}
	if f.SocialInteraction {
		total += 0.1
	}
	return domain.ClampSigned(total)
}

// AverageProcessingTimeMS reports the mean per-tick processing time
// across the last (up to 1000) ticks, for the status/health surface.
func (s *Service) AverageProcessingTimeMS() float64 {
	return s.metrics.average()
}

// PhaseDetector exposes the detector for the control-command surface
// (force transitions, status reporting).
func (s *Service) PhaseDetector() *phase.Detector { return s.phaseDetector }

// MemoryManager exposes the MCT buffer for the clear_mct control
// command.
func (s *Service) MemoryManager() *memory.Manager { return s.memMgr }

// DreamEngine exposes the dream engine for force_dream_start/
// interrupt_dream/get_status control commands.
func (s *Service) DreamEngine() *dream.Engine { return s.dreamEngine }

func (s *Service) publishContextualisedState(cx domain.ContextualisedState) {
	msg := bus.FromContextualisedState(cx, uuid.NewString())
	payload, err := bus.Encode(msg)
	if err != nil {
		s.logger.Error("encode contextualised state failed", "error", err)
		return
	}
	if err := s.bus.Publish(s.topics.ContextualisedState(), payload); err != nil {
		s.logger.Warn("publish contextualised state failed", "error", err)
	}
}

func (s *Service) publishAlert(cx domain.ContextualisedState, resp domain.EmergencyResponse) {
	var critical []string
	for i, v := range cx.Emotions {
		if v > 0.7 {
			critical = append(critical, domain.EmotionNames[i])
		}
	}
	msg := bus.AlertMessage{
		Urgence:                    true,
		NiveauDanger:               int(resp.DangerLevel),
		GradientDangerGlobal:       cx.DangerGradient,
		ContexteDetecte:            cx.ContextLabel,
		EmotionsCritiques:          critical,
		GradientsDeclencheurs:      resp.TriggerGradients,
		RecommandationIntervention: string(resp.Action),
		TextID:                     uuid.NewString(),
		TimestampMS:                time.Now().UnixMilli(),
	}
	payload, err := bus.Encode(msg)
	if err != nil {
		s.logger.Error("encode alert failed", "error", err)
		return
	}
	if err := s.bus.Publish(s.topics.Alert(), payload); err != nil {
		s.logger.Warn("publish alert failed", "error", err)
	}
}

// PublishPendingDreamCommands drains the Dream Engine's command channel
// onto the bus. Runs on its own goroutine (started by cmd/affectd) so a
// slow subscriber never blocks a dream phase transition (§5: "Dream
// Engine never blocks main pipeline").
func (s *Service) PublishPendingDreamCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, open := <-s.dreamEngine.Commands():
			if !open {
				return
			}
			s.publishDreamCommand(cmd)
		}
	}
}

func (s *Service) publishDreamCommand(cmd domain.DreamCommand) {
	msg := bus.FromDreamCommand(cmd, time.Now().UnixMilli())
	payload, err := bus.Encode(msg)
	if err != nil {
		s.logger.Error("encode dream command failed", "error", err)
		return
	}
	if err := s.bus.Publish(s.topics.DreamCommands(), payload); err != nil {
		s.logger.Warn("publish dream command failed", "error", err)
	}

	if cmd.Kind == domain.DreamCommandConsolidate {
		s.publishMemoryConsolidate(cmd.Memory)
	}

	if s.sink != nil {
		if err := s.sink.Apply(context.Background(), cmd, time.Now().UnixMilli()); err != nil {
			s.logger.Warn("persist dream command failed", "kind", cmd.Kind, "error", err)
		}
	}
}

func (s *Service) publishMemoryConsolidate(mem domain.Memory) {
	priority := domain.PriorityNormal
	if mem.IsTrauma {
		priority = domain.PriorityCritical
	}
	msg := bus.MemoryConsolidateMessage{
		ID:     mem.ID,
		Statut: bus.StatutEnAttente,
		// The Memory Manager keeps a single post-contextualisation
		// vector per record, not a separate pre-contextualisation
		// snapshot, so emotions_brutes mirrors emotions_contextualisees.
		EmotionsBrutes:           mem.Vector,
		EmotionsContextualisees:  mem.Vector,
		ContexteDetecte:          mem.ContextTag,
		ScoreSignificativite:     mem.ConsolidationScore,
		RecommandationTraitement: string(mem.Type),
		Priorite:                 int(priority),
		TimestampMS:              time.Now().UnixMilli(),
	}
	payload, err := bus.Encode(msg)
	if err != nil {
		s.logger.Error("encode memory consolidate failed", "error", err)
		return
	}
	if err := s.bus.Publish(s.topics.MemoryConsolidate(), payload); err != nil {
		s.logger.Warn("publish memory consolidate failed", "error", err)
	}
}

// PublishDreamStatus publishes a snapshot of the Dream Engine's state,
// for periodic status broadcast or the get_status control command.
func (s *Service) PublishDreamStatus() error {
	msg := bus.DreamStatusMessage{
		State:                 s.dreamEngine.State(),
		CycleProgress:         s.dreamEngine.CycleProgress(),
		DreamPhaseProgress:    s.dreamEngine.PhaseProgress(),
		SecondsSinceLastDream: s.dreamEngine.SecondsSinceLastDream(),
		Stats:                 s.dreamEngine.Stats(),
		TimestampMS:           time.Now().UnixMilli(),
	}
	payload, err := bus.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode dream status: %w", err)
	}
	return s.bus.Publish(s.topics.DreamStatus(), payload)
}
