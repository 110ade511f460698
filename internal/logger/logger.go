package logger

import "skipgraph/internal/domain"

// Field is a structured key:value pair attached to a log line.
type Field struct {
	Key string
	Val any
}

// Logger is the minimal structured logging interface used throughout
// internal packages, so they don't depend directly on zap.
type Logger interface {
	Named(name string) Logger
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// F is a concise constructor for a Field.
func F(key string, val any) Field { return Field{Key: key, Val: val} }

// FIdentity serializes a domain.NodeIdentity into a readable field.
func FIdentity(key string, n domain.NodeIdentity) Field {
	return Field{
		Key: key,
		Val: map[string]any{
			"id":   n.ID.String(),
			"addr": n.Address.String(),
		},
	}
}

// NopLogger is a Logger implementation that discards everything.
type NopLogger struct{}

func (l *NopLogger) Named(name string) Logger          { return l }
func (l *NopLogger) With(fields ...Field) Logger       { return l }
func (l *NopLogger) Debug(msg string, fields ...Field) {}
func (l *NopLogger) Info(msg string, fields ...Field)  {}
func (l *NopLogger) Warn(msg string, fields ...Field)  {}
func (l *NopLogger) Error(msg string, fields ...Field) {}
