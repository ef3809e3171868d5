package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/user"
)

// Logger writes structured logs with zap and, when enabled, reports to rollbar.
type Logger struct {
	zap     *zap.Logger
	rollbar *rollbarReporter
}

var _ core.Logger = (*Logger)(nil)

func NewZap(levelStr, format string) *zap.Logger {
	level := zapcore.InfoLevel
	switch levelStr {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

// New builds the application logger. Rollbar reporting is on when a token is configured.
func New(conf *core.Config) *Logger {
	l := &Logger{zap: NewZap(conf.LogLevel, conf.LogFormat)}
	if conf.RollbarToken != "" {
		l.rollbar = newRollbarReporter(conf)
	}
	return l
}

func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// NewTest logs through t.
func NewTest(t testing.TB) *Logger {
	return &Logger{zap: zaptest.NewLogger(t)}
}

func (l *Logger) Sync() {
	_ = l.zap.Sync()
	if l.rollbar != nil {
		l.rollbar.close()
	}
}

// fields converts the args: errors, extra field maps and the acting user.Profile.
func fields(args []interface{}) ([]zap.Field, *user.Profile) {
	var (
		out   []zap.Field
		actor *user.Profile
	)
	for _, arg := range args {
		switch v := arg.(type) {
		case error:
			out = append(out, zap.Error(v))
			var st interface{ StackTrace() errors.StackTrace }
			if errors.As(v, &st) {
				out = append(out, zap.String("trace", formatTrace(st.StackTrace())))
			}
		case map[string]interface{}:
			for k, val := range v {
				out = append(out, zap.Any(k, val))
			}
		case user.Profile:
			if actor == nil {
				p := v
				actor = &p
			}
		case *user.Profile:
			if actor == nil && v != nil {
				actor = v
			}
		default:
			out = append(out, zap.Any("arg", v))
		}
	}
	if actor != nil {
		out = append(out, zap.String("actor_id", actor.UserID), zap.String("actor_role", string(actor.Role)))
	}
	return out, actor
}

func (l *Logger) log(level zapcore.Level, msg string, args []interface{}) {
	flds, actor := fields(args)
	if l.rollbar != nil {
		l.rollbar.report(level, msg, actor, args)
		if level == zapcore.FatalLevel {
			l.rollbar.close()
		}
	}
	// writing a fatal entry exits
	if ce := l.zap.Check(level, msg); ce != nil {
		ce.Write(flds...)
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log(zapcore.DebugLevel, msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log(zapcore.InfoLevel, msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log(zapcore.WarnLevel, msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log(zapcore.ErrorLevel, msg, args) }

func (l *Logger) Fatal(msg string, args ...interface{}) { l.log(zapcore.FatalLevel, msg, args) }
