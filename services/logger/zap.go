package logsvc

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/inclusiva/core"
)

// ZapLogger writes structured logs. Arguments are turned into fields:
// errors become "error", maps are flattened and core.Person becomes "person.*".
type ZapLogger struct {
	zl *zap.Logger
}

var _ core.Logger = (*ZapLogger)(nil)

// NewZapLogger builds a JSON logger in production and a console logger elsewhere.
func NewZapLogger(conf *core.Config) (*ZapLogger, error) {
	var zconf zap.Config
	if conf.Env == "PROD" {
		zconf = zap.NewProductionConfig()
	} else {
		zconf = zap.NewDevelopmentConfig()
		zconf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(conf.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}
	if conf.Debug {
		level = zapcore.DebugLevel
	}
	zconf.Level.SetLevel(level)

	zl, err := zconf.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{zl: zl.With(zap.String("app", conf.AppName))}, nil
}

// WrapZap adapts an existing zap logger, e.g. one built by zaptest.
func WrapZap(zl *zap.Logger) *ZapLogger {
	return &ZapLogger{zl: zl}
}

func (l *ZapLogger) Zap() *zap.Logger { return l.zl }

func (l *ZapLogger) Sync() error { return l.zl.Sync() }

func fields(args []interface{}) []zap.Field {
	fs := make([]zap.Field, 0, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case nil:
		case error:
			fs = append(fs, zap.Error(v))
		case map[string]interface{}:
			for k, val := range v {
				fs = append(fs, zap.Any(k, val))
			}
		case core.Person:
			fs = append(fs,
				zap.String("person.id", v.ID),
				zap.String("person.email", v.Email),
				zap.String("person.workspace_id", v.WorkspaceID),
			)
		case zap.Field:
			fs = append(fs, v)
		default:
			fs = append(fs, zap.Any(fmt.Sprintf("arg%d", i), v))
		}
	}
	return fs
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.zl.Debug(msg, fields(args)...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.zl.Info(msg, fields(args)...) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.zl.Warn(msg, fields(args)...) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.zl.Error(msg, fields(args)...) }
func (l *ZapLogger) Fatal(msg string, args ...interface{}) { l.zl.Fatal(msg, fields(args)...) }
