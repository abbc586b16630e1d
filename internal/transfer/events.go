package transfer

// EventSink receives structured pipeline events for human consumption. The
// core never formats terminal output; sinks decide rendering and destination.
type EventSink interface {
	SectionStarted(title string)
	StepStarted(description string)
	StepCompleted(succeeded bool, message string, details string)
	WarningRaised(message string)
}

// NoopEventSink discards all events.
type NoopEventSink struct{}

// SectionStarted implements EventSink.
func (NoopEventSink) SectionStarted(string) {}

// StepStarted implements EventSink.
func (NoopEventSink) StepStarted(string) {}

// StepCompleted implements EventSink.
func (NoopEventSink) StepCompleted(bool, string, string) {}

// WarningRaised implements EventSink.
func (NoopEventSink) WarningRaised(string) {}

func resolveEventSink(sink EventSink) EventSink {
	if sink == nil {
		return NoopEventSink{}
	}
	return sink
}
