// Package logging builds the loggers used by the daemon: a size-rotated
// log file, optionally mirrored to another writer.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig controls log rotation.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Tee receives a copy of every line when set.
	Tee io.Writer
}

// DefaultFileConfig returns rotation settings for path: 10 MB files, three
// backups, kept for four weeks.
func DefaultFileConfig(path string) *FileConfig {
	return &FileConfig{
		Path:       path,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
		Compress:   true,
	}
}

// Output is a rotating log destination. Close releases the file.
type Output struct {
	io.Writer
	file *lumberjack.Logger
}

// Close closes the underlying log file.
func (o *Output) Close() error {
	if o.file == nil {
		return nil
	}
	return o.file.Close()
}

// Rotate starts a new log file.
func (o *Output) Rotate() error {
	if o.file == nil {
		return nil
	}
	return o.file.Rotate()
}

// Open returns a rotating writer for config.
func Open(config *FileConfig) (*Output, error) {
	if config == nil || config.Path == "" {
		return &Output{Writer: os.Stderr}, nil
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0700); err != nil {
		return nil, err
	}

	file := &lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    config.MaxSizeMB,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAgeDays,
		Compress:   config.Compress,
	}
	var w io.Writer = file
	if config.Tee != nil {
		w = io.MultiWriter(file, config.Tee)
	}
	return &Output{Writer: w, file: file}, nil
}

// New returns a logger with the given component prefix, e.g. "sync"
// becomes "[sync] ".
func New(w io.Writer, component string) *log.Logger {
	prefix := ""
	if component != "" {
		prefix = "[" + component + "] "
	}
	return log.New(w, prefix, log.LstdFlags)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}
