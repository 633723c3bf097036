package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"psyche/internal/bus"
	"psyche/internal/config"
	"psyche/internal/domain"
	"psyche/internal/dream"
	"psyche/internal/ltm"
	"psyche/internal/memory"
	"psyche/internal/orchestrator"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to the flat key=value configuration file")
		host       = flag.String("host", "", "override rabbitmq_host from the config file")
		port       = flag.String("port", "", "override rabbitmq_port from the config file")
		user       = flag.String("user", "", "override rabbitmq_username from the config file")
		pass       = flag.String("pass", "", "override rabbitmq_password from the config file")
		demo       = flag.Bool("demo", false, "run an in-process simulated sensor/context generator against the real pipeline, no broker required")
		llmTest    = flag.Bool("llm-test", false, "run a single synthetic tick and print the resulting memory count and dream state, then exit")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath, logger)
		if err != nil {
			logger.Error("load config failed", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *host != "" {
		cfg.MQTTBrokerURL = *host
	}
	if *port != "" {
		cfg.MQTTBrokerURL = fmt.Sprintf("%s:%s", cfg.MQTTBrokerURL, *port)
	}
	if *user != "" {
		cfg.MQTTUsername = *user
	}
	if *pass != "" {
		cfg.MQTTPassword = *pass
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	topics := bus.Topics{Prefix: cfg.MQTTTopicPrefix}
	mct := memory.NewManager()
	dreamEngine := dream.New(cfg.DreamConfig(), mct, dream.RealClock, logger)

	var transport bus.Bus
	if *demo {
		transport = bus.NewInMemory()
	} else {
		transport = bus.NewMQTT(bus.MQTTConfig{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  "affectd",
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
		}, logger)
	}
	if err := transport.Start(ctx); err != nil {
		logger.Error("start bus failed", "error", err)
		os.Exit(1)
	}
	defer transport.Close()

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.UpdateFrequencyHz = cfg.FrequenceMajHz
	orchCfg.GradientWeights = cfg.GradientWeights()
	orchCfg.ContextThresholds = cfg.ContextThresholds()
	orchCfg.ContextCoefficients = cfg.ContextCoefficients()
	svc := orchestrator.New(transport, topics, orchCfg, mct, dreamEngine, logger)

	if *llmTest {
		runSmokeTest(svc, mct, dreamEngine, logger)
		return
	}

	if err := svc.Subscribe(); err != nil {
		logger.Error("subscribe failed", "error", err)
		os.Exit(1)
	}

	if cfg.DBDSN != "" {
		store, err := ltm.New(ctx, cfg.DBDSN)
		if err != nil {
			logger.Error("connect long-term memory store failed", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			logger.Error("migrate long-term memory store failed", "error", err)
			os.Exit(1)
		}
		svc.SetSink(store)
		logger.Info("long-term memory sink enabled")
	}

	go svc.Run(ctx)
	go svc.PublishPendingDreamCommands(ctx)
	go svc.RunDreamStatusBroadcast(ctx, 30*time.Second)
	if *demo {
		go runDemoGenerator(ctx, transport, topics, logger)
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":        true,
			"connected": transport.Connected(),
		})
	})
	r.Get("/v1/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"average_processing_time_ms": svc.AverageProcessingTimeMS(),
			"active_phase":               svc.PhaseDetector().Current(),
			"memory_count":               mct.Len(),
		})
	})
	r.Get("/v1/dream/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"state":                    dreamEngine.State(),
			"cycle_progress":           dreamEngine.CycleProgress(),
			"dream_phase_progress":     dreamEngine.PhaseProgress(),
			"seconds_since_last_dream": dreamEngine.SecondsSinceLastDream(),
			"stats":                    dreamEngine.Stats(),
		})
	})
	r.Post("/v1/control", func(w http.ResponseWriter, req *http.Request) {
		var cmd bus.ControlCommand
		if err := json.NewDecoder(req.Body).Decode(&cmd); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
			return
		}
		payload, err := bus.Encode(cmd)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		if err := transport.Publish(topics.Control(), payload); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("affect pipeline started", "addr", cfg.HTTPAddr, "demo", *demo)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
}

// runSmokeTest is --llm-test's replacement role: a standalone
// connectivity check against the real pipeline instead of a streaming
// provider.
func runSmokeTest(svc *orchestrator.Service, mct *memory.Manager, dreamEngine *dream.Engine, logger *slog.Logger) {
	logger.Info("running synthetic single-tick smoke test")

	var calm domain.EmotionVector
	if idx, ok := domain.EmotionIndex("Joy"); ok {
		calm[idx] = 0.3
	}
	svc.SetRawEmotions(calm)
	svc.SetContext(domain.Context{
		Physical:  domain.PhysicalSensors{Temperature: 0.4, Volume: 0.2, Luminosity: 0.5, Gyro: 0.1},
		Technical: domain.TechnicalState{CPUTemp: 45, GPUTemp: 50, CPULoad: 0.3, RAMUsage: 0.4, Stability: 0.9},
		Feedback:  domain.ExternalFeedback{PositiveValidation: true},
	})

	if err := svc.Tick(context.Background(), 0.1); err != nil {
		fmt.Fprintf(os.Stdout, `{"error":%q}`+"\n", err.Error())
		os.Exit(1)
	}

	report := map[string]any{
		"memory_count": mct.Len(),
		"dream_state":  dreamEngine.State(),
	}
	out, _ := json.Marshal(report)
	fmt.Fprintln(os.Stdout, string(out))
}

// runDemoGenerator feeds the pipeline a slow drift of plausible sensor
// readings so --demo produces visible phase and dream activity without
// an external broker.
func runDemoGenerator(ctx context.Context, b bus.Bus, topics bus.Topics, logger *slog.Logger) {
	rng := rand.New(rand.NewSource(1))
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emotions := make(map[string]float64, domain.EmotionDim)
			for _, name := range domain.EmotionNames {
				emotions[name] = clamp01(0.2 + rng.Float64()*0.2)
			}
			payload, err := json.Marshal(emotions)
			if err != nil {
				continue
			}
			if err := b.Publish(topics.RawEmotions(), payload); err != nil {
				logger.Warn("demo generator: publish emotions failed", "error", err)
			}

			ctxMsg := bus.ContextMessage{
				PhysicalSensors:  domain.PhysicalSensors{Temperature: 0.4, Volume: 0.2, Luminosity: 0.5, Gyro: 0.1},
				InternalStates:   domain.TechnicalState{CPUTemp: 45, GPUTemp: 50, CPULoad: 0.3, RAMUsage: 0.4, Stability: 0.9},
				ExternalFeedback: domain.ExternalFeedback{PositiveValidation: true},
				TimestampMS:      time.Now().UnixMilli(),
			}
			ctxPayload, err := bus.Encode(ctxMsg)
			if err != nil {
				continue
			}
			if err := b.Publish(topics.Context(), ctxPayload); err != nil {
				logger.Warn("demo generator: publish context failed", "error", err)
			}
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
