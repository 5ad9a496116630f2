package log

import (
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// symbolMap prefixes console messages by their "type" field.
var symbolMap = map[string]string{
	"request":      "🌐",
	"slow_request": "🐌",
	"breaker":      "⚡",
	"probe":        "🩺",
	"slo":          "📈",
	"alert":        "🚨",
	"queue":        "📦",
	"replay":       "🔁",
	"store":        "💾",
	"startup":      "🚀",
	"scheduler":    "🎯",
	"audit":        "📋",
}

func statusSymbol(status int64) string {
	switch {
	case status >= 500:
		return "🔴"
	case status >= 400:
		return "🟠"
	case status >= 300:
		return "🟡"
	default:
		return "🟢"
	}
}

func levelSymbol(level zapcore.Level) string {
	switch {
	case level >= zapcore.ErrorLevel:
		return "❌"
	case level == zapcore.WarnLevel:
		return "⚠️"
	case level == zapcore.InfoLevel:
		return "ℹ️"
	default:
		return "🐛"
	}
}

// SymbolConsoleEncoder wraps the zap console encoder and prefixes each message with a symbol
// chosen by HTTP status, then by the "type" field, then by level.
type SymbolConsoleEncoder struct {
	zapcore.Encoder
}

// NewSymbolConsoleEncoder creates the console encoder used in development.
func NewSymbolConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &SymbolConsoleEncoder{Encoder: zapcore.NewConsoleEncoder(cfg)}
}

// EncodeEntry implements zapcore.Encoder.
func (enc *SymbolConsoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	entry.Message = symbolFor(entry.Level, fields) + " " + entry.Message
	return enc.Encoder.EncodeEntry(entry, fields)
}

// Clone implements zapcore.Encoder.
func (enc *SymbolConsoleEncoder) Clone() zapcore.Encoder {
	return &SymbolConsoleEncoder{Encoder: enc.Encoder.Clone()}
}

func symbolFor(level zapcore.Level, fields []zapcore.Field) string {
	var logType string
	for _, field := range fields {
		switch {
		case field.Key == "status" && isIntField(field) && field.Integer > 0:
			return statusSymbol(field.Integer)
		case field.Key == "type" && field.Type == zapcore.StringType:
			logType = field.String
		}
	}
	if s, ok := symbolMap[logType]; ok {
		return s
	}
	return levelSymbol(level)
}

func isIntField(f zapcore.Field) bool {
	switch f.Type {
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		return true
	}
	return false
}
