package report

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/mutker/robotwatch/internal/diagnosis"
	"codeberg.org/mutker/robotwatch/internal/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SystemLogName is the file in the reports directory that receives one
// line per written report.
const SystemLogName = "system_monitor.log"

// LogOptions controls rotation of the system log.
type LogOptions struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// FileWriter writes reports as text files and appends to the system log.
type FileWriter struct {
	mu        sync.Mutex
	dir       string
	picker    diagnosis.Picker
	systemLog *lumberjack.Logger
}

// NewFileWriter creates dir if needed. A nil picker uses the first
// headline variant.
func NewFileWriter(dir string, opts LogOptions, picker diagnosis.Picker) (*FileWriter, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errFactory.Wrap(errors.ErrWriteReport, err)
	}
	if picker == nil {
		picker = diagnosis.FixedPicker(0)
	}

	return &FileWriter{
		dir:    dir,
		picker: picker,
		systemLog: &lumberjack.Logger{
			Filename:   filepath.Join(dir, SystemLogName),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		},
	}, nil
}

// Dir returns the reports directory.
func (w *FileWriter) Dir() string {
	return w.dir
}

// Write renders inc, writes it and logs it. The returned filename is set
// whenever the report file itself was written, even if the system log
// append failed.
func (w *FileWriter) Write(ctx context.Context, inc Incident) (string, error) {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return "", errFactory.Wrap(errors.ErrWriteReport, err)
	}

	name := Filename(inc)
	body := Compose(inc, w.picker)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.WriteFile(filepath.Join(w.dir, name), []byte(body), 0o644); err != nil {
		return "", errFactory.Wrap(errors.ErrWriteReport, err).WithData(name)
	}
	if _, err := w.systemLog.Write([]byte(SystemLogLine(inc, name))); err != nil {
		return name, errFactory.Wrap(errors.ErrAppendSystemLog, err)
	}

	return name, nil
}

// Clear removes every entry of the reports directory, the system log
// included.
func (w *FileWriter) Clear() error {
	errFactory := errors.New()

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.systemLog.Close(); err != nil {
		return errFactory.Wrap(errors.ErrClearReports, err)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return errFactory.Wrap(errors.ErrClearReports, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(w.dir, e.Name())); err != nil {
			return errFactory.Wrap(errors.ErrClearReports, err).WithData(e.Name())
		}
	}

	return nil
}

// Close releases the system log.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.systemLog.Close()
}
