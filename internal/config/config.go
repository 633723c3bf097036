// Package config parses the flat key=value configuration file of §6.
// Every numeric/bool lookup here keeps its documented default on a
// missing or malformed value rather than failing, with a "log and fall
// back" texture translated from environment variables to file keys.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"psyche/internal/contextualiser"
	"psyche/internal/dream"
	"psyche/internal/gradient"
)

// Config holds every key named in §6, after defaulting and type
// coercion.
type Config struct {
	MQTTBrokerURL   string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string

	QueueEmotionalInput      string
	QueueContextInput        string
	QueueConsciousnessOutput string
	QueueAmygdaleonOutput    string
	QueueMLTOutput           string

	FrequenceMajHz float64
	LatenceMaxMs   int

	Alpha, Beta, Gamma, Delta, Epsilon, Eta float64

	Omega1, Omega2, Omega3, Omega4 float64
	Sigma1, Sigma2, Sigma3, Sigma4 float64
	PiEnv, PiSys, PiTrauma, PiInstab float64

	SeuilAmyghaleon        float64
	SeuilMLTBase           float64
	SeuilVariationCritique float64
	SeuilNormalMax         float64
	SeuilSurveillanceMax   float64
	SeuilAlerteMax         float64
	SeuilCritiqueMax       float64
	ChargeCPUMax           float64

	HTTPAddr           string
	DBDSN              string
	DreamCyclePeriodS  float64
	DreamMinSinceLastS float64
}

// Default returns the documented defaults for every key, used as the
// seed a parsed file is merged on top of.
func Default() Config {
	gw := gradient.DefaultWeights()
	coef := contextualiser.DefaultCoefficients()
	th := contextualiser.DefaultThresholds()
	dc := dream.DefaultConfig()

	return Config{
		MQTTBrokerURL:   "tcp://localhost:1883",
		MQTTTopicPrefix: "psyche",

		QueueEmotionalInput:      "psyche/input/emotions",
		QueueContextInput:        "psyche/input/context",
		QueueConsciousnessOutput: "psyche/output/consciousness",
		QueueAmygdaleonOutput:    "psyche/output/amygdaleon",
		QueueMLTOutput:           "psyche/output/mlt",

		FrequenceMajHz: 10,
		LatenceMaxMs:   100,

		Alpha: coef.Alpha, Beta: coef.Beta, Gamma: coef.Gamma,
		Delta: coef.Delta, Epsilon: coef.Epsilon, Eta: coef.Eta,

		Omega1: gw.Omega1, Omega2: gw.Omega2, Omega3: gw.Omega3, Omega4: gw.Omega4,
		Sigma1: gw.Sigma1, Sigma2: gw.Sigma2, Sigma3: gw.Sigma3, Sigma4: gw.Sigma4,
		PiEnv: gw.PiEnv, PiSys: gw.PiSys, PiTrauma: gw.PiTrauma, PiInstab: gw.PiInstab,

		SeuilAmyghaleon:        gw.BaseAlertThreshold,
		SeuilMLTBase:           gw.BaseMLTThreshold,
		SeuilVariationCritique: 0.3,
		SeuilNormalMax:         th.SurveillanceMax,
		SeuilSurveillanceMax:   th.AlertMax,
		SeuilAlerteMax:         th.CriticalMax,
		SeuilCritiqueMax:       th.UrgencyMax,
		ChargeCPUMax:           0.9,

		HTTPAddr:           ":9010",
		DreamCyclePeriodS:  dc.CyclePeriodSeconds,
		DreamMinSinceLastS: dc.MinTimeSinceLastDreamSeconds,
	}
}

// Load reads a flat key=value file: blank lines and lines starting
// with # or ; are comments, everything else is "key = value" with
// optional surrounding whitespace. Unknown keys log a warning and are
// otherwise ignored; a malformed numeric value logs a warning and keeps
// the existing default (§6).
func Load(path string, logger *slog.Logger) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			logger.Warn("config: malformed line, skipping", "line", lineNo)
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		applyKey(&cfg, key, value, logger)
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return cfg, nil
}

func applyKey(cfg *Config, key, value string, logger *slog.Logger) {
	switch key {
	case "rabbitmq_host":
		cfg.MQTTBrokerURL = value
	case "rabbitmq_port":
		// Accepted but not used: the port is read from the
		// scheme://host:port URL given in rabbitmq_host.
	case "rabbitmq_username":
		cfg.MQTTUsername = value
	case "rabbitmq_password":
		cfg.MQTTPassword = value
	case "mqtt_topic_prefix":
		cfg.MQTTTopicPrefix = value
	case "queue_emotional_input":
		cfg.QueueEmotionalInput = value
	case "queue_context_input":
		cfg.QueueContextInput = value
	case "queue_consciousness_output":
		cfg.QueueConsciousnessOutput = value
	case "queue_amygdaleon_output":
		cfg.QueueAmygdaleonOutput = value
	case "queue_mlt_output":
		cfg.QueueMLTOutput = value
	case "http_addr":
		cfg.HTTPAddr = value
	case "db_dsn":
		cfg.DBDSN = value
	case "dream_cycle_period_s":
		setFloat(&cfg.DreamCyclePeriodS, key, value, logger)
	case "dream_min_since_last_s":
		setFloat(&cfg.DreamMinSinceLastS, key, value, logger)
	case "frequence_maj_hz":
		setFloatBounded(&cfg.FrequenceMajHz, key, value, 1, 1000, logger)
	case "latence_max_ms":
		setInt(&cfg.LatenceMaxMs, key, value, logger)
	case "alpha":
		setFloat(&cfg.Alpha, key, value, logger)
	case "beta":
		setFloat(&cfg.Beta, key, value, logger)
	case "gamma":
		setFloat(&cfg.Gamma, key, value, logger)
	case "delta":
		setFloat(&cfg.Delta, key, value, logger)
	case "epsilon":
		setFloat(&cfg.Epsilon, key, value, logger)
	case "eta":
		setFloat(&cfg.Eta, key, value, logger)
	case "omega1":
		setFloat(&cfg.Omega1, key, value, logger)
	case "omega2":
		setFloat(&cfg.Omega2, key, value, logger)
	case "omega3":
		setFloat(&cfg.Omega3, key, value, logger)
	case "omega4":
		setFloat(&cfg.Omega4, key, value, logger)
	case "sigma1":
		setFloat(&cfg.Sigma1, key, value, logger)
	case "sigma2":
		setFloat(&cfg.Sigma2, key, value, logger)
	case "sigma3":
		setFloat(&cfg.Sigma3, key, value, logger)
	case "sigma4":
		setFloat(&cfg.Sigma4, key, value, logger)
	case "pi_env":
		setFloat(&cfg.PiEnv, key, value, logger)
	case "pi_sys":
		setFloat(&cfg.PiSys, key, value, logger)
	case "pi_trauma":
		setFloat(&cfg.PiTrauma, key, value, logger)
	case "pi_instab":
		setFloat(&cfg.PiInstab, key, value, logger)
	case "seuil_amyghaleon":
		setFloat(&cfg.SeuilAmyghaleon, key, value, logger)
	case "seuil_mlt_base":
		setFloat(&cfg.SeuilMLTBase, key, value, logger)
	case "seuil_variation_critique":
		setFloat(&cfg.SeuilVariationCritique, key, value, logger)
	case "seuil_normal_max":
		setFloat(&cfg.SeuilNormalMax, key, value, logger)
	case "seuil_surveillance_max":
		setFloat(&cfg.SeuilSurveillanceMax, key, value, logger)
	case "seuil_alerte_max":
		setFloat(&cfg.SeuilAlerteMax, key, value, logger)
	case "seuil_critique_max":
		setFloat(&cfg.SeuilCritiqueMax, key, value, logger)
	case "charge_cpu_max":
		setFloat(&cfg.ChargeCPUMax, key, value, logger)
	default:
		logger.Warn("config: unknown key, ignoring", "key", key)
	}
}

func setFloat(dst *float64, key, value string, logger *slog.Logger) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logger.Warn("config: malformed numeric value, keeping default", "key", key, "value", value)
		return
	}
	*dst = v
}

func setFloatBounded(dst *float64, key, value string, lo, hi float64, logger *slog.Logger) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logger.Warn("config: malformed numeric value, keeping default", "key", key, "value", value)
		return
	}
	if v < lo || v > hi {
		logger.Warn("config: value out of bounds, keeping default", "key", key, "value", value, "min", lo, "max", hi)
		return
	}
	*dst = v
}

func setInt(dst *int, key, value string, logger *slog.Logger) {
	v, err := strconv.Atoi(value)
	if err != nil {
		logger.Warn("config: malformed integer value, keeping default", "key", key, "value", value)
		return
	}
	*dst = v
}

// GradientWeights projects the gradient-related keys into a
// gradient.Weights value.
func (c Config) GradientWeights() gradient.Weights {
	return gradient.Weights{
		Omega1: c.Omega1, Omega2: c.Omega2, Omega3: c.Omega3, Omega4: c.Omega4,
		Sigma1: c.Sigma1, Sigma2: c.Sigma2, Sigma3: c.Sigma3, Sigma4: c.Sigma4,
		PiEnv: c.PiEnv, PiSys: c.PiSys, PiTrauma: c.PiTrauma, PiInstab: c.PiInstab,
		BaseMLTThreshold:   c.SeuilMLTBase,
		BaseAlertThreshold: c.SeuilAmyghaleon,
	}
}

// ContextThresholds projects the seuil_* keys into a
// contextualiser.Thresholds value.
func (c Config) ContextThresholds() contextualiser.Thresholds {
	return contextualiser.Thresholds{
		SurveillanceMax: c.SeuilNormalMax,
		AlertMax:        c.SeuilSurveillanceMax,
		CriticalMax:     c.SeuilAlerteMax,
		UrgencyMax:      c.SeuilCritiqueMax,
	}
}

// ContextCoefficients projects α..η into a contextualiser.Coefficients
// value.
func (c Config) ContextCoefficients() contextualiser.Coefficients {
	return contextualiser.Coefficients{
		Alpha: c.Alpha, Beta: c.Beta, Gamma: c.Gamma,
		Delta: c.Delta, Epsilon: c.Epsilon, Eta: c.Eta,
	}
}

// DreamConfig overlays the dream_* keys onto the package default.
func (c Config) DreamConfig() dream.Config {
	dc := dream.DefaultConfig()
	dc.CyclePeriodSeconds = c.DreamCyclePeriodS
	dc.MinTimeSinceLastDreamSeconds = c.DreamMinSinceLastS
	return dc
}
