package logsvc

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/rs/zerolog"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/user"
)

// RollbarLogger reports to Rollbar and mirrors every entry to a zerolog console writer.
type RollbarLogger struct {
	console zerolog.Logger
	exit    func(code int)
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(out io.Writer, component string, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	if out == nil {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
	}
	console := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Str("build", conf.Build).
		Logger()

	return &RollbarLogger{console: console, exit: os.Exit}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var usrSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set logged in User
		if usr, ok := arg.(user.User); ok {
			if !usrSet { // only set one User
				rollbar.SetPerson(usr.ID, usr.Name, usr.Email)
				usrSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) print(evt *zerolog.Event, msg string, args []interface{}) {
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			evt = evt.Err(a)
		case map[string]interface{}:
			evt = evt.Fields(a)
		case user.User:
			evt = evt.Str("user_id", a.ID).Str("user_role", a.Role)
		default:
			evt = evt.Str("extra", fmt.Sprintf("%+v", a))
		}
	}
	evt.Msg(msg)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print(l.console.Debug(), msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(l.console.Info(), msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(l.console.Warn(), msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(l.console.Error(), msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	// WithLevel does not exit, the flush below must happen first.
	l.print(l.console.WithLevel(zerolog.FatalLevel), msg, args)
	rollbar.Wait()
	l.exit(1)
}
