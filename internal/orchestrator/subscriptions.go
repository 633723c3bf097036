package orchestrator

import (
	"psyche/internal/bus"
	"psyche/internal/domain"
)

// Subscribe registers every inbound handler against b (§6 Inbound).
// Per-message decode failures are logged and the message dropped
// (MissingInput/OutOfRange, §7) rather than propagated.
func (s *Service) Subscribe() error {
	if err := s.bus.Subscribe(s.topics.RawEmotions(), s.handleRawEmotions); err != nil {
		return err
	}
	if err := s.bus.Subscribe(s.topics.Context(), s.handleContext); err != nil {
		return err
	}
	if err := s.bus.Subscribe(s.topics.Control(), s.handleControl); err != nil {
		return err
	}
	return nil
}

func (s *Service) handleRawEmotions(payload []byte) {
	var v domain.EmotionVector
	if err := bus.Decode(payload, &v); err != nil {
		s.logger.Warn("raw emotions decode failed, dropping", "error", err)
		return
	}
	s.SetRawEmotions(v)
}

func (s *Service) handleContext(payload []byte) {
	var msg bus.ContextMessage
	if err := bus.Decode(payload, &msg); err != nil {
		s.logger.Warn("context decode failed, dropping", "error", err)
		return
	}
	s.SetContext(msg.ToContext())
}

func (s *Service) handleControl(payload []byte) {
	var cmd bus.ControlCommand
	if err := bus.Decode(payload, &cmd); err != nil {
		s.logger.Warn("control command decode failed, dropping", "error", err)
		return
	}

	switch cmd.Command {
	case bus.ControlForceDreamStart:
		s.dreamEngine.ForceStart()
	case bus.ControlInterruptDream:
		s.dreamEngine.Interrupt()
	case bus.ControlGetStatus:
		if err := s.PublishDreamStatus(); err != nil {
			s.logger.Warn("publish dream status failed", "error", err)
		}
	case bus.ControlClearMCT:
		s.memMgr.Clear()
	case bus.ControlResetStats:
		s.dreamEngine.ResetStats()
	case bus.ControlSetConfig:
		s.logger.Info("set_config received, dynamic reconfiguration not yet applied", "data", string(cmd.Data))
	default:
		s.logger.Warn("unknown control command", "command", cmd.Command)
	}
}
