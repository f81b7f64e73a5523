// Package wlog sets up the process-wide structured logger, adapted
// from kryptco-kr's logging.go: a syslog backend when available,
// falling back to a colorized stderr backend, with module level
// selected by the compositor's own env vars rather than a generic
// log-level var.
package wlog

import (
	stdlog "log"
	"log/syslog"
	"os"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("")

var syslogFormat = logging.MustStringFormatter(`%{time:15:04:05.000} %{level:.6s} ▶ %{message}`)
var stderrFormat = logging.MustStringFormatter(`%{color}wlserver ▶ %{message}%{color:reset}`)

// Debug flags parsed from the environment (§6 External Interfaces).
type DebugFlags struct {
	Requests bool
	Events   bool
	Raw      bool
}

// FlagsFromEnv reads WL_DEBUG, WL_REQUEST_DEBUG, WL_EVENT_DEBUG.
func FlagsFromEnv() DebugFlags {
	wlDebug := os.Getenv("WL_DEBUG")
	f := DebugFlags{
		Requests: wlDebug != "" || os.Getenv("WL_REQUEST_DEBUG") != "",
		Events:   wlDebug != "" || os.Getenv("WL_EVENT_DEBUG") != "",
		Raw:      wlDebug == "raw",
	}
	return f
}

// Setup configures the package logger. prefix names the syslog
// facility/stderr prefix (conventionally "wlserver" or "wlscanner").
// trySyslog attempts a syslog backend first, falling back to stderr
// on any error (e.g. no syslog daemon reachable, as in a container).
func Setup(prefix string, trySyslog bool) *logging.Logger {
	var backend logging.Backend

	if trySyslog {
		sb, err := logging.NewSyslogBackendPriority(prefix, syslog.LOG_NOTICE)
		if err == nil {
			logging.SetFormatter(syslogFormat)
			backend = sb
			if syslogBackend, ok := backend.(*logging.SyslogBackend); ok {
				stdlog.SetOutput(syslogBackend.Writer)
			}
		}
	}

	if backend == nil {
		backend = logging.NewLogBackend(os.Stderr, prefix, 0)
		logging.SetFormatter(stderrFormat)
	}

	leveled := logging.AddModuleLevel(backend)
	flags := FlagsFromEnv()
	if flags.Requests || flags.Events {
		leveled.SetLevel(logging.DEBUG, prefix)
	} else {
		leveled.SetLevel(logging.NOTICE, prefix)
	}
	logging.SetBackend(leveled)

	return log
}

// Logger returns the package-wide logger, usable before Setup runs
// (defaulting to an unconfigured stderr backend).
func Logger() *logging.Logger { return log }
