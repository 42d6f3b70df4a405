package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO ",
	WARN:  "WARN ",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

type Logger struct {
	level  Level
	logger *log.Logger
}

// Global logger instance
var defaultLogger *Logger

func init() {
	defaultLogger = New(INFO)
}

// New creates a new logger with the specified level
func New(level Level) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(os.Stderr, "", log.LstdFlags),
	}
}

// SetLevel sets the global logger level
func SetLevel(level Level) {
	defaultLogger.level = level
}

// ParseLevel converts a level name to a Level. Unknown names default to WARN.
func ParseLevel(levelStr string) Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return WARN
	}
}

// shouldLog checks if a message at this level should be logged
func (l *Logger) shouldLog(level Level) bool {
	return level >= l.level
}

// format creates a formatted message with level prefix
func (l *Logger) format(level Level, msg string) string {
	return fmt.Sprintf("[%s] %s", levelNames[level], msg)
}

// Debug logs a debug message
func Debug(msg string, args ...interface{}) {
	if defaultLogger.shouldLog(DEBUG) {
		formatted := fmt.Sprintf(msg, args...)
		defaultLogger.logger.Println(defaultLogger.format(DEBUG, formatted))
	}
}

// Info logs an info message
func Info(msg string, args ...interface{}) {
	if defaultLogger.shouldLog(INFO) {
		formatted := fmt.Sprintf(msg, args...)
		defaultLogger.logger.Println(defaultLogger.format(INFO, formatted))
	}
}

// Warn logs a warning message
func Warn(msg string, args ...interface{}) {
	if defaultLogger.shouldLog(WARN) {
		formatted := fmt.Sprintf(msg, args...)
		defaultLogger.logger.Println(defaultLogger.format(WARN, formatted))
	}
}

// Error logs an error message
func Error(msg string, args ...interface{}) {
	if defaultLogger.shouldLog(ERROR) {
		formatted := fmt.Sprintf(msg, args...)
		defaultLogger.logger.Println(defaultLogger.format(ERROR, formatted))
	}
}

// Fatal logs a fatal message and exits
func Fatal(msg string, args ...interface{}) {
	formatted := fmt.Sprintf(msg, args...)
	defaultLogger.logger.Fatalln(defaultLogger.format(FATAL, formatted))
}
