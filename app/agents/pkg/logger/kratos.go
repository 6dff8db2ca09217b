package logger

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sirupsen/logrus"
)

var _ log.Logger = (*kratosLogger)(nil)

// kratosLogger 将 kratos 的 key/value 日志桥接到 logrus
type kratosLogger struct {
	l *logrus.Logger
}

// NewKratosLogger 基于 logrus 实例创建 kratos log.Logger
func NewKratosLogger(l *logrus.Logger) log.Logger {
	return &kratosLogger{l: l}
}

func (k *kratosLogger) Log(level log.Level, keyvals ...interface{}) error {
	if len(keyvals) == 0 {
		return nil
	}
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "KEYVALS UNPAIRED")
	}

	var msg string
	fields := make(logrus.Fields, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		switch key {
		case log.DefaultMessageKey:
			msg = fmt.Sprint(keyvals[i+1])
		case "ts":
			// 时间由 formatter 统一输出
		default:
			fields[key] = keyvals[i+1]
		}
	}

	k.l.WithFields(fields).Log(toLogrusLevel(level), msg)
	return nil
}

func toLogrusLevel(level log.Level) logrus.Level {
	switch level {
	case log.LevelDebug:
		return logrus.DebugLevel
	case log.LevelWarn:
		return logrus.WarnLevel
	case log.LevelError:
		return logrus.ErrorLevel
	case log.LevelFatal:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
