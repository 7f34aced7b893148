package kafka

import (
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// KgoZapLogger adapts a zap.SugaredLogger to the kgo.Logger interface so
// franz-go's internal client logs flow through the same structured sink as
// the rest of the tracker.
type KgoZapLogger struct {
	logger *zap.SugaredLogger
}

func (l KgoZapLogger) Level() kgo.LogLevel {
	return kgo.LogLevelInfo
}

func (l KgoZapLogger) Log(level kgo.LogLevel, msg string, keyvals ...interface{}) {
	fields := make([]interface{}, 0, len(keyvals)+2)
	fields = append(fields, "source", "franz-go")
	fields = append(fields, keyvals...)

	switch level {
	case kgo.LogLevelError:
		l.logger.Errorw(msg, fields...)
	case kgo.LogLevelWarn:
		l.logger.Warnw(msg, fields...)
	case kgo.LogLevelInfo:
		l.logger.Infow(msg, fields...)
	case kgo.LogLevelDebug:
		l.logger.Debugw(msg, fields...)
	default:
		l.logger.Infow(fmt.Sprintf("[%v] %s", level, msg), fields...)
	}
}
