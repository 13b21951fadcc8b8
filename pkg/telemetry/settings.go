// Package telemetry provides OpenTelemetry integration for the streaming
// parser. It allows tracking and monitoring of Feed/Finalize calls with
// customizable spans and attributes.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Settings configures telemetry for parser operations.
// Telemetry is disabled by default and must be explicitly enabled.
type Settings struct {
	// IsEnabled controls whether telemetry is active. Defaults to false.
	IsEnabled bool

	// RecordText controls whether fed chunk text is recorded on spans.
	// Defaults to false: token-stream input can be large and callers may
	// not want it captured by a tracing backend.
	RecordText bool

	// RecordDiagnostics controls whether recoverable diagnostics produced
	// during a Feed call are attached to that call's span.
	RecordDiagnostics bool

	// StreamID is an identifier for grouping spans from the same Engine
	// across multiple Feed calls.
	StreamID string

	// Metadata contains additional key-value pairs to include in telemetry spans.
	Metadata map[string]attribute.Value

	// Tracer is a custom OpenTelemetry tracer. If nil, the global tracer will be used.
	Tracer trace.Tracer
}

// DefaultSettings returns Settings with sensible defaults.
func DefaultSettings() *Settings {
	return &Settings{
		IsEnabled:         false,
		RecordText:        false,
		RecordDiagnostics: true,
		Metadata:          make(map[string]attribute.Value),
	}
}

// WithEnabled returns a copy of Settings with IsEnabled set to the given value.
func (s *Settings) WithEnabled(enabled bool) *Settings {
	copy := *s
	copy.IsEnabled = enabled
	return &copy
}

// WithRecordText returns a copy of Settings with RecordText set to the given value.
func (s *Settings) WithRecordText(record bool) *Settings {
	copy := *s
	copy.RecordText = record
	return &copy
}

// WithRecordDiagnostics returns a copy of Settings with RecordDiagnostics set to the given value.
func (s *Settings) WithRecordDiagnostics(record bool) *Settings {
	copy := *s
	copy.RecordDiagnostics = record
	return &copy
}

// WithStreamID returns a copy of Settings with StreamID set to the given value.
func (s *Settings) WithStreamID(id string) *Settings {
	copy := *s
	copy.StreamID = id
	return &copy
}

// WithMetadata returns a copy of Settings with the given metadata merged in.
func (s *Settings) WithMetadata(metadata map[string]attribute.Value) *Settings {
	copy := *s
	copy.Metadata = make(map[string]attribute.Value)
	for k, v := range s.Metadata {
		copy.Metadata[k] = v
	}
	for k, v := range metadata {
		copy.Metadata[k] = v
	}
	return &copy
}

// WithTracer returns a copy of Settings with Tracer set to the given value.
func (s *Settings) WithTracer(tracer trace.Tracer) *Settings {
	copy := *s
	copy.Tracer = tracer
	return &copy
}
