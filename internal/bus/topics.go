package bus

import "fmt"

// Topics gives the fixed routing keys beneath a configured prefix, mapping
// onto §6's named queues (queue_emotional_input, queue_context_input,
// queue_consciousness_output, queue_amygdaleon_output, queue_mlt_output)
// and the optional speech/control channels.
type Topics struct {
	Prefix string
}

func (t Topics) RawEmotions() string       { return fmt.Sprintf("%s/input/emotions", t.Prefix) }
func (t Topics) Context() string           { return fmt.Sprintf("%s/input/context", t.Prefix) }
func (t Topics) Speech() string            { return fmt.Sprintf("%s/input/speech", t.Prefix) }
func (t Topics) Control() string           { return fmt.Sprintf("%s/control", t.Prefix) }
func (t Topics) ContextualisedState() string { return fmt.Sprintf("%s/output/consciousness", t.Prefix) }
func (t Topics) Alert() string             { return fmt.Sprintf("%s/output/amygdaleon", t.Prefix) }
func (t Topics) MemoryConsolidate() string { return fmt.Sprintf("%s/output/mlt", t.Prefix) }
func (t Topics) DreamCommands() string     { return fmt.Sprintf("%s/output/dream/commands", t.Prefix) }
func (t Topics) DreamStatus() string       { return fmt.Sprintf("%s/output/dream/status", t.Prefix) }
