package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/icomwland/icomwland/pkg/config"
	"gopkg.in/lumberjack.v2"
)

// Level is the severity of one log line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (lv Level) String() string {
	switch lv {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string ("debug", "warning", ...) to a Level,
// defaulting to LevelInfo for anything unrecognized.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// sink is one destination a formatted line is written to.
type sink struct {
	w io.Writer
}

func (s sink) write(line string) { fmt.Fprintln(s.w, line) }

// Logger tags every line with a component name (e.g. "controller", "civ",
// "daemon") and a severity, fans it out to whichever sinks are configured,
// and formats the line as either a JSON object or a human-readable line
// depending on the structured flag.
type Logger struct {
	minLevel   Level
	structured bool
	sinks      []sink
	rotator    *lumberjack.Logger
}

// New builds a Logger from the connection daemon's logging config: a
// rotating file sink (via lumberjack) when a file path is configured, a
// console sink when requested or when no file sink exists.
func New(cfg *config.Config) (*Logger, error) {
	l := &Logger{
		minLevel:   ParseLevel(cfg.Logging.Level),
		structured: cfg.Logging.Structured,
	}

	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			return nil, fmt.Errorf("logging: create log directory: %w", err)
		}
		l.rotator = &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSize,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAge,
			Compress:   cfg.Logging.Compress,
		}
		l.sinks = append(l.sinks, sink{l.rotator})
	}

	if cfg.Logging.Console || l.rotator == nil {
		l.sinks = append(l.sinks, sink{os.Stdout})
	}

	return l, nil
}

// Close releases the rotating file sink, if one is open.
func (l *Logger) Close() error {
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

func (l *Logger) format(lv Level, component, message string, fields map[string]interface{}) string {
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	if l.structured {
		obj := make(map[string]string, len(fields)+4)
		for k, v := range fields {
			obj[k] = fmt.Sprintf("%v", v)
		}
		obj["time"], obj["level"], obj["component"], obj["message"] = ts, lv.String(), component, message
		b, _ := json.Marshal(obj)
		return string(b)
	}

	var pairs []string
	for k, v := range fields {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
	}
	extra := ""
	if len(pairs) > 0 {
		extra = fmt.Sprintf(" [%s]", strings.Join(pairs, " "))
	}
	return fmt.Sprintf("%s [%s] %s: %s%s", ts, lv, component, message, extra)
}

func (l *Logger) emit(lv Level, component, message string, fields map[string]interface{}) {
	if lv < l.minLevel {
		return
	}
	line := l.format(lv, component, message, fields)
	for _, s := range l.sinks {
		s.write(line)
	}
}

func firstFields(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

func (l *Logger) Debugf(component, format string, args ...interface{}) {
	l.emit(LevelDebug, component, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Infof(component, format string, args ...interface{}) {
	l.emit(LevelInfo, component, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Warnf(component, format string, args ...interface{}) {
	l.emit(LevelWarn, component, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Errorf(component, format string, args ...interface{}) {
	l.emit(LevelError, component, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Debug(component, message string, fields ...map[string]interface{}) {
	l.emit(LevelDebug, component, message, firstFields(fields))
}

func (l *Logger) Info(component, message string, fields ...map[string]interface{}) {
	l.emit(LevelInfo, component, message, firstFields(fields))
}

func (l *Logger) Warn(component, message string, fields ...map[string]interface{}) {
	l.emit(LevelWarn, component, message, firstFields(fields))
}

func (l *Logger) Error(component, message string, fields ...map[string]interface{}) {
	l.emit(LevelError, component, message, firstFields(fields))
}

// Tagged returns a logger that always attaches fields to every call, for a
// goroutine or subsystem that wants the same context (e.g. session_id) on
// every line without repeating it.
func (l *Logger) Tagged(fields map[string]interface{}) *TaggedLogger {
	return &TaggedLogger{logger: l, fields: fields}
}

// TaggedLogger is a Logger bound to a fixed set of fields.
type TaggedLogger struct {
	logger *Logger
	fields map[string]interface{}
}

func (t *TaggedLogger) Debug(component, message string) { t.logger.emit(LevelDebug, component, message, t.fields) }
func (t *TaggedLogger) Info(component, message string)  { t.logger.emit(LevelInfo, component, message, t.fields) }
func (t *TaggedLogger) Warn(component, message string)  { t.logger.emit(LevelWarn, component, message, t.fields) }
func (t *TaggedLogger) Error(component, message string) { t.logger.emit(LevelError, component, message, t.fields) }

func (t *TaggedLogger) Debugf(component, format string, args ...interface{}) {
	t.logger.emit(LevelDebug, component, fmt.Sprintf(format, args...), t.fields)
}
func (t *TaggedLogger) Infof(component, format string, args ...interface{}) {
	t.logger.emit(LevelInfo, component, fmt.Sprintf(format, args...), t.fields)
}
func (t *TaggedLogger) Warnf(component, format string, args ...interface{}) {
	t.logger.emit(LevelWarn, component, fmt.Sprintf(format, args...), t.fields)
}
func (t *TaggedLogger) Errorf(component, format string, args ...interface{}) {
	t.logger.emit(LevelError, component, fmt.Sprintf(format, args...), t.fields)
}

var global *Logger

// InitGlobalLogger builds the process-wide Logger from cfg. Must run before
// any of the package-level Debug/Info/Warn/Error helpers are used if the
// default (stdout-only, info level) logger isn't acceptable.
func InitGlobalLogger(cfg *config.Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	global = l
	return nil
}

func globalOrFallback() *Logger {
	if global == nil {
		global = &Logger{minLevel: LevelInfo, sinks: []sink{{os.Stdout}}}
	}
	return global
}

// CloseGlobalLogger closes the process-wide logger's file sink, if any.
func CloseGlobalLogger() error {
	if global != nil {
		return global.Close()
	}
	return nil
}

func Debug(component, message string, fields ...map[string]interface{}) {
	globalOrFallback().Debug(component, message, fields...)
}

func Info(component, message string, fields ...map[string]interface{}) {
	globalOrFallback().Info(component, message, fields...)
}

func Warn(component, message string, fields ...map[string]interface{}) {
	globalOrFallback().Warn(component, message, fields...)
}

func Error(component, message string, fields ...map[string]interface{}) {
	globalOrFallback().Error(component, message, fields...)
}

func Debugf(component, format string, args ...interface{}) {
	globalOrFallback().Debugf(component, format, args...)
}

func Infof(component, format string, args ...interface{}) {
	globalOrFallback().Infof(component, format, args...)
}

func Warnf(component, format string, args ...interface{}) {
	globalOrFallback().Warnf(component, format, args...)
}

func Errorf(component, format string, args ...interface{}) {
	globalOrFallback().Errorf(component, format, args...)
}
