// Package logging builds per-component logrus loggers that write to stdout and, optionally,
// a rotating log file.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the root logger.
type Options struct {
	// Level is a logrus level name; unknown values fall back to info.
	Level string
	// File enables a rotating log file when non-empty.
	File string
	// Format is "text" or "json".
	Format string
	// Stdout overrides the console writer (tests); defaults to os.Stdout.
	Stdout io.Writer
}

// Logging owns the root logger and the optional rotating file.
type Logging struct {
	root *logrus.Logger
	file *lumberjack.Logger
}

// New configures a root logger from opts. Output goes through writer hooks so that the
// console and the file always see the same formatted line.
func New(opts Options) *Logging {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(io.Discard)
	if opts.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.000"})
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	logger.AddHook(&writerHook{Writer: stdout, LogLevels: availableLevels(level)})

	l := &Logging{root: logger}
	if opts.File != "" {
		l.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		logger.AddHook(&writerHook{Writer: l.file, LogLevels: availableLevels(level)})
	}
	return l
}

// For returns an entry tagged with the component name.
func (l *Logging) For(name string) *logrus.Entry {
	return l.root.WithField("name", name)
}

// Close closes the log file if one was opened.
func (l *Logging) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Discard returns an entry that drops everything. Used as the default in constructors and tests.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// writerHook writes logs to the specified writer for provided levels.
type writerHook struct {
	Writer    io.Writer
	LogLevels []logrus.Level
}

func (h *writerHook) Fire(e *logrus.Entry) error {
	line, err := e.String()
	if err != nil {
		return err
	}
	_, err = h.Writer.Write([]byte(line))
	return err
}

func (h *writerHook) Levels() []logrus.Level {
	return h.LogLevels
}

func availableLevels(min logrus.Level) []logrus.Level {
	levels := []logrus.Level{}
	for _, l := range logrus.AllLevels {
		if l <= min {
			levels = append(levels, l)
		}
	}
	return levels
}
