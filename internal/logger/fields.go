package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldSession is the structured log key for the interview session id.
	FieldSession = "session_id"
	// FieldStage is the structured log key for the wizard stage name.
	FieldStage = "stage"
	// FieldCheck is the structured log key for a gate check or checklist item.
	FieldCheck = "check"
	// FieldCode is the structured log key for the applicant invitation code.
	FieldCode = "unique_code"
)

// StringField is a key/value pair that is only logged when both parts are non-blank.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts pairs into zap fields, dropping blank keys and values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to logger, falling back to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// SessionFields describes an interview session. The invitation code is
// truncated since it is an applicant identifier.
func SessionFields(sessionID, code string) []zap.Field {
	return StringFields(
		StringField{Key: FieldSession, Value: sessionID},
		StringField{Key: FieldCode, Value: TruncateForLog(code, 8)},
	)
}

// WithSession returns a logger scoped to one interview session.
func WithSession(logger *zap.Logger, sessionID, code string) *zap.Logger {
	return WithFields(logger, SessionFields(sessionID, code)...)
}
