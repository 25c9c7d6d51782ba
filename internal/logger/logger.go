package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"kiosk/internal/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger provides leveled logging (info/warning/error) to rotated files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	files      map[string]*lumberjack.Logger
	logDir     string
	mu         sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logger := &Logger{
		logDir: config.LogDirectory,
		files:  make(map[string]*lumberjack.Logger),
	}

	logger.setupLoggers(config.LogMaxSizeMB, config.LogMaxBackups)
	return logger
}

// NewDiscard returns a Logger that drops every entry.
func NewDiscard() *Logger {
	return &Logger{
		infoLog:    log.New(io.Discard, "", 0),
		warningLog: log.New(io.Discard, "", 0),
		errorLog:   log.New(io.Discard, "", 0),
		files:      make(map[string]*lumberjack.Logger),
	}
}

// setupLoggers initializes writers and per-level loggers.
func (l *Logger) setupLoggers(maxSizeMB, maxBackups int) {
	infoWriter := io.MultiWriter(os.Stdout, l.openLogFile("info.log", maxSizeMB, maxBackups))
	warningWriter := io.MultiWriter(os.Stdout, l.openLogFile("warning.log", maxSizeMB, maxBackups))
	errorWriter := io.MultiWriter(os.Stderr, l.openLogFile("error.log", maxSizeMB, maxBackups))

	l.infoLog = log.New(infoWriter, "ℹ️  INFO    ", log.Ldate|log.Ltime|log.Lshortfile)
	l.warningLog = log.New(warningWriter, "⚠️  WARNING ", log.Ldate|log.Ltime|log.Lshortfile)
	l.errorLog = log.New(errorWriter, "❌ ERROR   ", log.Ldate|log.Ltime|log.Lshortfile)
}

// openLogFile returns a size-rotated writer for the given log file.
func (l *Logger) openLogFile(filename string, maxSizeMB, maxBackups int) *lumberjack.Logger {
	file := &lumberjack.Logger{
		Filename:   filepath.Join(l.logDir, filename),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
	l.files[filename] = file
	return file
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Output(2, fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) {
	l.mu.Lock()
	file, ok := l.files[fileName]
	l.mu.Unlock()
	if !ok {
		l.Error("Unknown log file: %s", fileName)
		return
	}

	// Close releases the handle; lumberjack reopens the file on the next write.
	if err := file.Close(); err != nil {
		l.Error("Error closing log file %s: %v", fileName, err)
		return
	}
	if err := os.Truncate(file.Filename, 0); err != nil && !os.IsNotExist(err) {
		l.Error("Error truncating log file %s: %v", fileName, err)
		return
	}

	l.Info("File content has been cleared.")
}

// Close flushes and closes every log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for _, file := range l.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
