// Package sqlbuslog provides the small global logger used throughout
// sqlbus, in the same shape as the level-gated logger the rest of the
// corpus carries: a package-global *log.Logger, an integer threshold, and a
// cheap guard so callers can skip building a message entirely when its
// level is filtered out.
package sqlbuslog

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
)

// Loglevel is the severity of a log message. Lower values are more severe;
// a message is emitted when its level is <= the configured threshold, so
// raising the threshold makes logging noisier.
type Loglevel int

const (
	// NONE logs nothing at all.
	NONE Loglevel = iota
	// ERRORS logs situations that are not expected to happen.
	ERRORS
	// WARNINGS logs non-critical situations that might happen, but shouldn't.
	WARNINGS
	// INFO logs situations that are expected, but important for operation.
	INFO
	// DEBUG logs everything.
	DEBUG
)

var levelTags = [...]string{"[NON]", "[ERR]", "[WRN]", "[INF]", "[DBG]"}

func (l Loglevel) String() string {
	if l < NONE || int(l) >= len(levelTags) {
		return "[???]"
	}
	return levelTags[l]
}

const loggerFlags = log.LstdFlags | log.Lmicroseconds

var (
	logger   = log.New(os.Stderr, "sqlbus ", loggerFlags)
	loglevel = WARNINGS
)

// SetLoglevel sets the global threshold; messages at or below ll are logged.
func SetLoglevel(ll Loglevel) {
	loglevel = ll
}

// SetLogger replaces the underlying *log.Logger, e.g. to reuse a logger an
// embedder already constructed. Close does not destroy a logger installed
// this way.
func SetLogger(l *log.Logger) {
	if l != nil {
		logger = l
	}
}

// SetOutput redirects the default logger's writer without replacing it.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// IsLoggingEnabled reports whether a message at level ll would currently be
// emitted, so callers can skip building an expensive message.
func IsLoggingEnabled(ll Loglevel) bool {
	return ll <= loglevel
}

// Printf logs a formatted message at level ll if ll is at or below the
// configured threshold.
func Printf(ll Loglevel, format string, args ...interface{}) {
	if !IsLoggingEnabled(ll) {
		return
	}
	logger.Printf("%s %s", ll, fmt.Sprintf(format, args...))
}

// Print logs what at level ll if ll is at or below the configured threshold.
func Print(ll Loglevel, what ...interface{}) {
	if !IsLoggingEnabled(ll) {
		return
	}
	logger.Printf("%s %s", ll, fmt.Sprintln(what...))
}

func mapToChar(i int) byte {
	i = i % (10 + 26 + 26)
	switch {
	case i < 10:
		return byte('0' + i)
	case i < 10+26:
		return byte('A' + i - 10)
	case i < 10+26+26:
		return byte('a' + i - 10 - 26)
	}
	return byte('_')
}

// GetLogToken returns a short random alphanumeric string, used to tag a
// query's log lines so they can be grepped out of a busy log.
func GetLogToken() string {
	str := make([]byte, 6)
	for i := range str {
		str[i] = mapToChar(rand.Int())
	}
	return string(str)
}
