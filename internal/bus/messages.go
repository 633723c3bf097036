// Package bus implements the topic-addressed message transport of §6: a
// Bus interface with an MQTT adapter (at-least-once QoS, reconnect with
// backoff) and an in-memory adapter for tests and --demo mode, plus the
// JSON wire codecs for every inbound/outbound message type.
//
// Adapted from internal/mqtt/hub.go's paho.mqtt.golang wiring and
// reconnect handling; the correlation-channel request/response pattern
// used there for skill invocation is not needed here (the pipeline is
// fire-and-forget pub/sub), so Bus exposes plain Publish/Subscribe.
package bus

import (
	"encoding/json"

	"psyche/internal/domain"
)

// RawEmotionsMessage is the inbound raw-emotion payload: a JSON object
// keyed by the 24 labelled emotion names. Unknown keys are ignored by
// domain.EmotionVector's decoder; a missing labelled key is a decode
// error (MissingInput, §7).
type RawEmotionsMessage struct {
	Emotions domain.EmotionVector
	TextID   string
}

// ContextMessage is the inbound context payload.
type ContextMessage struct {
	PhysicalSensors  domain.PhysicalSensors  `json:"capteurs_physiques"`
	InternalStates   domain.TechnicalState   `json:"etats_internes"`
	ExternalFeedback domain.ExternalFeedback `json:"feedbacks_externes"`
	TimestampMS      int64                   `json:"timestamp"`
}

func (m ContextMessage) ToContext() domain.Context {
	return domain.Context{
		Physical:    m.PhysicalSensors,
		Technical:   m.InternalStates,
		Feedback:    m.ExternalFeedback,
		TimestampMS: m.TimestampMS,
	}
}

// SpeechMessage is the optional inbound speech-text payload.
type SpeechMessage struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// ControlCommand is the optional inbound control-command payload.
type ControlCommand struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data,omitempty"`
}

const (
	ControlForceDreamStart = "force_dream_start"
	ControlInterruptDream  = "interrupt_dream"
	ControlGetStatus       = "get_status"
	ControlClearMCT        = "clear_mct"
	ControlResetStats      = "reset_stats"
	ControlSetConfig       = "set_config"
)

// ContextualisedStateMessage is the outbound Cx payload.
type ContextualisedStateMessage struct {
	EmotionsContextualisees domain.EmotionVector `json:"emotions_contextualisees"`
	EmotionGlobale          float64              `json:"emotion_globale"`
	ContexteDetecte         domain.ContextLabel  `json:"contexte_detecte"`
	ConfianceContexte       float64              `json:"confiance_contexte"`
	GradientDangerGlobal    float64              `json:"gradient_danger_global"`
	NiveauDanger            int                  `json:"niveau_danger"`
	SignalAmyghaleon        bool                 `json:"signal_amyghaleon"`
	SouvenirAConsolider     bool                 `json:"souvenir_a_consolider"`
	PrioriteMLT             int                  `json:"priorite_mlt"`
	TextID                  string               `json:"text_id"`
	TimestampMS             int64                `json:"timestamp_ms"`
}

func FromContextualisedState(s domain.ContextualisedState, textID string) ContextualisedStateMessage {
	return ContextualisedStateMessage{
		EmotionsContextualisees: s.Emotions,
		EmotionGlobale:          s.EmotionGlobale,
		ContexteDetecte:         s.ContextLabel,
		ConfianceContexte:       s.ContextConfidence,
		GradientDangerGlobal:    s.DangerGradient,
		NiveauDanger:            int(s.DangerLevel),
		SignalAmyghaleon:        s.AlertFlag,
		SouvenirAConsolider:     s.ConsolidateFlag,
		PrioriteMLT:             int(s.ConsolidationPriority),
		TextID:                  textID,
		TimestampMS:             s.TimestampMS,
	}
}

// AlertMessage is the outbound emergency payload.
type AlertMessage struct {
	Urgence                 bool                `json:"urgence"`
	NiveauDanger            int                 `json:"niveau_danger"`
	GradientDangerGlobal    float64             `json:"gradient_danger_global"`
	ContexteDetecte         domain.ContextLabel `json:"contexte_detecte"`
	EmotionsCritiques       []string            `json:"emotions_critiques"`
	GradientsDeclencheurs   map[string]float64  `json:"gradients_declencheurs"`
	RecommandationIntervention string          `json:"recommandation_intervention"`
	TextID                  string              `json:"text_id"`
	TimestampMS             int64               `json:"timestamp_ms"`
}

// MemoryConsolidateMessage is the outbound memory-to-consolidate payload.
type MemoryConsolidateMessage struct {
	ID                        string               `json:"id"`
	Statut                    string                `json:"statut"`
	Priorite                  int                   `json:"priorite"`
	EmotionsBrutes            domain.EmotionVector  `json:"emotions_brutes"`
	EmotionsContextualisees   domain.EmotionVector  `json:"emotions_contextualisees"`
	ContexteDetecte           domain.ContextLabel   `json:"contexte_detecte"`
	ScoreSignificativite      float64               `json:"score_significativite"`
	RecommandationTraitement  string                `json:"recommandation_traitement"`
	TimestampMS               int64                 `json:"timestamp_ms"`
}

const (
	StatutEnAttente = "EN_ATTENTE_CONSOLIDATION"
	StatutErreur    = "ERREUR"
)

// DreamCommandMessage is one outbound dream command (consolidate,
// create_edge, reinforce_edge, forget).
type DreamCommandMessage struct {
	Kind        domain.DreamCommandKind `json:"kind"`
	MemoryID    string                  `json:"memory_id,omitempty"`
	SourceID    string                  `json:"source_id,omitempty"`
	TargetID    string                  `json:"target_id,omitempty"`
	Weight      float64                 `json:"weight,omitempty"`
	Relation    domain.EdgeRelation     `json:"relation,omitempty"`
	IsTrauma    bool                    `json:"is_trauma,omitempty"`
	TimestampMS int64                   `json:"timestamp_ms"`
}

func FromDreamCommand(c domain.DreamCommand, nowMS int64) DreamCommandMessage {
	m := DreamCommandMessage{Kind: c.Kind, TimestampMS: nowMS}
	switch c.Kind {
	case domain.DreamCommandConsolidate, domain.DreamCommandForget:
		m.MemoryID = c.Memory.ID
		m.IsTrauma = c.Memory.IsTrauma
	case domain.DreamCommandCreateEdge, domain.DreamCommandReinforceEdge:
		m.SourceID = c.Edge.Source
		m.TargetID = c.Edge.Target
		m.Weight = c.Edge.Weight
		m.Relation = c.Edge.Relation
	}
	return m
}

// DreamStatusMessage is the outbound dream-status payload.
type DreamStatusMessage struct {
	State               domain.DreamState `json:"state"`
	CycleProgress       float64           `json:"cycle_progress"`
	DreamPhaseProgress  float64           `json:"dream_phase_progress"`
	SecondsSinceLastDream float64         `json:"seconds_since_last_dream"`
	Stats               domain.DreamStats `json:"stats"`
	TimestampMS         int64             `json:"timestamp_ms"`
}

// Encode/Decode are thin json.Marshal/Unmarshal wrappers kept as named
// functions so every outbound type has one obvious round-trip path (§8:
// decode -> encode -> decode must reproduce equal objects).
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
