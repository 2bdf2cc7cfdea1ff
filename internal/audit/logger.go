package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Entry is one admin action worth keeping a record of.
type Entry struct {
	Timestamp  time.Time
	Action     string
	ActorID    string
	TargetType string
	TargetID   string
	Details    map[string]string
}

// Logger writes structured audit entries. It is a thin layer over zerolog so
// audit lines share the process log stream and can be filtered on the
// "audit" marker.
type Logger struct {
	logger zerolog.Logger
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger.With().Bool("audit", true).Logger()}
}

func (l *Logger) Record(ctx context.Context, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	event := l.logger.Info().
		Time("at", entry.Timestamp).
		Str("action", entry.Action).
		Str("actor_id", entry.ActorID).
		Str("target_type", entry.TargetType).
		Str("target_id", entry.TargetID)
	for k, v := range entry.Details {
		event = event.Str("detail_"+k, v)
	}
	event.Msg("admin action")
}
