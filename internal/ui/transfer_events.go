package ui

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	sectionMessageTemplateConstant       = "=== %s ==="
	stepStartedMessageTemplateConstant   = "Step: %s"
	stepSucceededPrefixConstant          = "✓"
	stepFailedPrefixConstant             = "✗"
	warningPrefixConstant                = "⚠"
	stepResultMessageTemplateConstant    = "%s %s"
	stepDetailSuffixTemplateConstant     = " (%s)"
	warningMessageTemplateConstant       = "%s %s"
	emptyStringConstant                  = ""
)

// TransferEventFormatter builds human-readable messages for transfer pipeline events.
type TransferEventFormatter struct{}

// BuildSectionMessage formats a section boundary.
func (formatter TransferEventFormatter) BuildSectionMessage(title string) string {
	return fmt.Sprintf(sectionMessageTemplateConstant, title)
}

// BuildStepStartedMessage formats a step announcement.
func (formatter TransferEventFormatter) BuildStepStartedMessage(description string) string {
	return fmt.Sprintf(stepStartedMessageTemplateConstant, description)
}

// BuildStepResultMessage formats a step result with its visual indicator.
func (formatter TransferEventFormatter) BuildStepResultMessage(succeeded bool, message string, details string) string {
	prefix := stepFailedPrefixConstant
	if succeeded {
		prefix = stepSucceededPrefixConstant
	}

	resultMessage := fmt.Sprintf(stepResultMessageTemplateConstant, prefix, message)
	detailSuffix := formatter.formatDetailSuffix(details)
	if len(detailSuffix) == 0 {
		return resultMessage
	}
	return resultMessage + detailSuffix
}

// BuildWarningMessage formats a warning with its symbol.
func (formatter TransferEventFormatter) BuildWarningMessage(message string) string {
	return fmt.Sprintf(warningMessageTemplateConstant, warningPrefixConstant, message)
}

func (formatter TransferEventFormatter) formatDetailSuffix(details string) string {
	trimmedDetails := strings.TrimSpace(details)
	if len(trimmedDetails) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(stepDetailSuffixTemplateConstant, trimmedDetails)
}

// ConsoleEventLogger renders transfer pipeline events using a zap logger
// configured for human-readable output. It implements transfer.EventSink.
type ConsoleEventLogger struct {
	logger    *zap.Logger
	formatter TransferEventFormatter
}

// NewConsoleEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleEventLogger(logger *zap.Logger) *ConsoleEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleEventLogger{logger: logger, formatter: TransferEventFormatter{}}
}

// SectionStarted logs a section boundary.
func (eventLogger *ConsoleEventLogger) SectionStarted(title string) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildSectionMessage(title))
}

// StepStarted logs a step announcement at debug level.
func (eventLogger *ConsoleEventLogger) StepStarted(description string) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Debug(eventLogger.formatter.BuildStepStartedMessage(description))
}

// StepCompleted logs a step result, using the error level for failures.
func (eventLogger *ConsoleEventLogger) StepCompleted(succeeded bool, message string, details string) {
	if eventLogger == nil {
		return
	}
	resultMessage := eventLogger.formatter.BuildStepResultMessage(succeeded, message, details)
	if succeeded {
		eventLogger.logger.Info(resultMessage)
		return
	}
	eventLogger.logger.Error(resultMessage)
}

// WarningRaised logs a warning event.
func (eventLogger *ConsoleEventLogger) WarningRaised(message string) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Warn(eventLogger.formatter.BuildWarningMessage(message))
}
