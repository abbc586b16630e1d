// Package ui renders transfer pipeline events for human consumption.
//
// It provides the zap-backed ConsoleEventLogger implementing
// transfer.EventSink, keeping all terminal formatting outside the core
// transfer packages.
package ui
