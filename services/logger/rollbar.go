package logsvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	rollbarerrors "github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap/zapcore"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/user"
)

type rollbarReporter struct {
	client *rollbar.Client
}

func newRollbarReporter(conf *core.Config) *rollbarReporter {
	client := rollbar.New(conf.RollbarToken, conf.Env, conf.Build, conf.Server.Host, "")
	client.SetStackTracer(rollbarerrors.StackTracer)
	return &rollbarReporter{client: client}
}

var rollbarLevels = map[zapcore.Level]string{
	zapcore.WarnLevel:  rollbar.WARN,
	zapcore.ErrorLevel: rollbar.ERR,
}

// prepare merges the extra maps of args and picks the first error. The actor is not an extra.
func (r *rollbarReporter) prepare(msg string, args []interface{}) (extras map[string]interface{}, err error) {
	extras = map[string]interface{}{"message": msg}
	for _, arg := range args {
		switch v := arg.(type) {
		case error:
			if err == nil {
				err = v
			}
		case map[string]interface{}:
			for k, val := range v {
				extras[k] = val
			}
		}
	}
	return extras, err
}

func (r *rollbarReporter) report(level zapcore.Level, msg string, actor *user.Profile, args []interface{}) {
	if level < zapcore.WarnLevel {
		return
	}
	rlevel, ok := rollbarLevels[level]
	if !ok {
		rlevel = rollbar.CRIT
	}

	ctx := context.Background()
	if actor != nil {
		ctx = rollbar.NewPersonContext(ctx, &rollbar.Person{Id: actor.UserID, Username: actor.FullName, Email: actor.Email})
	}

	extras, err := r.prepare(msg, args)
	if err != nil {
		r.client.ErrorWithExtrasAndContext(ctx, rlevel, err, extras)
		return
	}
	r.client.MessageWithExtrasAndContext(ctx, rlevel, msg, extras)
}

func (r *rollbarReporter) close() {
	r.client.Wait()
	_ = r.client.Close()
}

func formatTrace(st errors.StackTrace) string {
	lines := make([]string, 0, len(st))
	for _, f := range st {
		lines = append(lines, fmt.Sprintf("%+v", f))
	}
	return strings.Join(lines, "\n")
}
