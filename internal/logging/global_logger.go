// Package logging configures the process-wide logrus logger for afp.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFormatter renders entries as "[time] [level] message key=value".
type LogFormatter struct{}

// Format renders a single log entry.
func (m *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	message := strings.TrimRight(entry.Message, "\r\n")
	_, _ = fmt.Fprintf(b, "[%s] [%s] %s", timestamp, entry.Level, message)

	for k, v := range entry.Data {
		_, _ = fmt.Fprintf(b, " %s=%v", k, v)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Options control logger setup.
type Options struct {
	Debug   bool
	LogFile string
	// Output receives log lines in addition to LogFile. Defaults to stderr.
	Output io.Writer
}

// Setup configures the standard logrus logger. The returned closer releases
// the rotating log file if one was opened.
func Setup(opts Options) (io.Closer, error) {
	log.SetFormatter(&LogFormatter{})
	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.LogFile == "" {
		log.SetOutput(out)
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   opts.LogFile,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   false,
	}
	log.SetOutput(io.MultiWriter(out, rotator))
	return rotator, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
