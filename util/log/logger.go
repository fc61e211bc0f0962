// Package log implements utility methods for logging in a colorful manner.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	isatty "github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var showPid = false

func init() {
	if os.Getenv("COWSTORE_LOG_SHOW_PID") != "" {
		showPid = true
	}
}

// FancyLogFormatter is the default logger for cowstore.
type FancyLogFormatter struct {
	UseColors bool
}

var symbolTable = map[logrus.Level]string{
	logrus.DebugLevel: "⚙",
	logrus.InfoLevel:  "⚐",
	logrus.WarnLevel:  "⚠",
	logrus.ErrorLevel: "⚡",
	logrus.FatalLevel: "☣",
	logrus.PanicLevel: "☠",
}

var colorTable = map[logrus.Level]func(string, ...interface{}) string{
	logrus.DebugLevel: color.CyanString,
	logrus.InfoLevel:  color.GreenString,
	logrus.WarnLevel:  color.YellowString,
	logrus.ErrorLevel: color.RedString,
	logrus.FatalLevel: color.MagentaString,
	logrus.PanicLevel: color.MagentaString,
}

func colorByLevel(level logrus.Level, msg string) string {
	fn, ok := colorTable[level]
	if !ok {
		return msg
	}

	return fn("%s", msg)
}

func formatColored(useColors bool, buffer *bytes.Buffer, msg string, level logrus.Level) {
	if useColors {
		buffer.WriteString(colorByLevel(level, msg))
	} else {
		buffer.WriteString(msg)
	}
}

func formatTimestamp(builder *strings.Builder, t time.Time) {
	fmt.Fprintf(builder, "%02d.%02d.%04d", t.Day(), t.Month(), t.Year())
	builder.WriteByte('/')
	fmt.Fprintf(builder, "%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

func formatFields(useColors bool, buffer *bytes.Buffer, entry *logrus.Entry) {
	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		keys = append(keys, key)
	}

	sort.Strings(keys)
	buffer.WriteString(" [")

	for idx, key := range keys {
		formatColored(useColors, buffer, key, entry.Level)
		buffer.WriteByte('=')

		switch v := entry.Data[key].(type) {
		case error:
			formatColored(useColors, buffer, v.Error(), logrus.ErrorLevel)
		default:
			buffer.WriteString(fmt.Sprintf("%v", v))
		}

		// Print no space after the last element:
		if idx != len(keys)-1 {
			buffer.WriteByte(' ')
		}
	}

	buffer.WriteByte(']')
}

var logSymbols = map[string]struct{}{
	"logrus.Debugf":   {},
	"logrus.Debug":    {},
	"logrus.Infof":    {},
	"logrus.Info":     {},
	"logrus.Warnf":    {},
	"logrus.Warn":     {},
	"logrus.Warningf": {},
	"logrus.Warning":  {},
	"logrus.Errorf":   {},
	"logrus.Error":    {},
	"logrus.Panic":    {},
	"logrus.Panicf":   {},
}

func findCallers() (string, int, bool) {
	// logrus adds some stuff to the stack trace.
	pcs := make([]uintptr, 15)
	nCallers := runtime.Callers(7, pcs)
	frames := runtime.CallersFrames(pcs[:nCallers])

	nextLineIsCallee := false
	for {
		frame, ok := frames.Next()
		if !ok {
			break
		}

		if nextLineIsCallee {
			// If it's inside of cowstore, the relative
			// path from the module root is enough to print.
			modTag := "cowstore/"
			modIdx := strings.LastIndex(frame.File, modTag)
			if modIdx == -1 {
				return filepath.Base(frame.File), frame.Line, true
			}

			return frame.File[modIdx+len(modTag):], frame.Line, true
		}

		lastIdx := strings.LastIndex(frame.Function, "/")
		if lastIdx == -1 {
			continue
		}

		// Check if this line is a call to the official logrus API.
		// Then, the next line must be the actual line where the log was done.
		_, nextLineIsCallee = logSymbols[frame.Function[lastIdx+1:]]
	}

	return "", 0, false
}

// Format logs a single entry according to our formatting ideas.
func (flf *FancyLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	prefixBuilder := strings.Builder{}
	formatTimestamp(&prefixBuilder, entry.Time)
	prefixBuilder.WriteByte(' ')
	prefixBuilder.WriteString(symbolTable[entry.Level])

	buffer := &bytes.Buffer{}
	if flf.UseColors {
		buffer.WriteString(colorByLevel(entry.Level, prefixBuilder.String()))
	} else {
		buffer.WriteString(prefixBuilder.String())
	}

	if showPid {
		buffer.WriteString(fmt.Sprintf(" [%d]", os.Getpid()))
	}

	if file, line, ok := findCallers(); ok {
		buffer.WriteString(fmt.Sprintf(" %s:%d:", file, line))
	}

	buffer.WriteByte(' ')
	buffer.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		formatFields(flf.UseColors, buffer, entry)
	}

	buffer.WriteByte('\n')
	return buffer.Bytes(), nil
}

// IsTerminal tells if `w` is connected to a terminal,
// i.e. if it makes sense to print colors to it.
func IsTerminal(w io.Writer) bool {
	fd, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(fd.Fd())
}

// Setup configures the global logrus logger to write
// to `w` at `level` with the fancy formatter.
func Setup(w io.Writer, level string, useColors bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	logrus.SetOutput(w)
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&FancyLogFormatter{
		UseColors: useColors && IsTerminal(w),
	})

	return nil
}
