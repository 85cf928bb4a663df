package logsvc

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/rollbar/rollbar-go"
	rollbarerrors "github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/user"
)

// RollbarLogger echoes every entry to a std logger and reports it to Rollbar when enabled.
type RollbarLogger struct {
	std    *log.Logger
	client *rollbar.Client
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	client := rollbar.NewAsync(conf.RollbarToken, conf.Env, conf.Build, conf.Server.Host, "")
	client.SetStackTracer(rollbarerrors.StackTracer)
	client.SetCustom(map[string]interface{}{"app": conf.AppName})
	return &RollbarLogger{std: std, client: client}
}

func (l *RollbarLogger) Enable(enabled bool) {
	l.client.SetEnabled(enabled)
}

// entry is a log call sorted into what Rollbar understands.
type entry struct {
	msg    string
	err    error
	extras map[string]interface{}
	person *rollbar.Person
}

// newEntry sorts args: the first error is reported with its stack, later ones
// and unknown values land in extras, maps are merged into extras and the
// first non-zero claim becomes the Rollbar person.
func newEntry(msg string, args []interface{}) entry {
	e := entry{msg: msg, extras: map[string]interface{}{}}
	var others []string
	for _, arg := range args {
		switch v := arg.(type) {
		case user.Claim:
			if e.person == nil && !v.IsZero() {
				e.person = &rollbar.Person{Id: v.Username, Username: v.Username}
				e.extras["role"] = string(v.Role)
				e.extras["course"] = v.Course
			}
		case error:
			if e.err == nil {
				e.err = v
			} else {
				others = append(others, v.Error())
			}
		case map[string]interface{}:
			for k, val := range v {
				e.extras[k] = val
			}
		default:
			others = append(others, fmt.Sprintf("%+v", v))
		}
	}
	if len(others) > 0 {
		e.extras["others"] = others
	}
	return e
}

func (l *RollbarLogger) report(level string, e entry) {
	ctx := context.Background()
	if e.person != nil {
		ctx = rollbar.NewPersonContext(ctx, e.person)
	}
	if e.err != nil {
		e.extras["message"] = e.msg
		l.client.ErrorWithExtrasAndContext(ctx, level, e.err, e.extras)
		return
	}
	l.client.MessageWithExtrasAndContext(ctx, level, e.msg, e.extras)
}

func (l *RollbarLogger) echo(level string, msg string, args []interface{}) {
	l.std.Printf("%s: %s", strings.ToUpper(level), msg)
	for _, arg := range args {
		l.std.Printf("\t%+v", arg)
	}
}

func (l *RollbarLogger) log(level string, msg string, args []interface{}) {
	l.report(level, newEntry(msg, args))
	l.echo(level, msg, args)
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.INFO, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.WARN, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

// Fatal flushes pending reports before exiting.
func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	l.client.Wait()
	l.std.Fatal(msg)
}
