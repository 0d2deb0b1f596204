package log

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Logger writes everything to the log file. Nop until Init is called.
var Logger = zap.NewNop()

var consoleLogger = zap.NewNop()  // SUCCESS and ERROR lines only
var annotations io.Writer         // GitHub Actions workflow commands, nil when disabled
var fileWriter *rotatingLogWriter // open app.log, closed by the next Init
var mu sync.Mutex

// Options configures Init.
type Options struct {
	Dir     string // directory for app.log, "" disables the file logger
	Debug   bool   // write DEBUG entries to the file
	Console bool   // coloured SUCCESS/ERROR lines on stderr

	// Annotations receives "::error::" lines for the CI host.
	// Defaults to stdout when GITHUB_ACTIONS=true.
	Annotations io.Writer
}

// Init builds the file and console loggers. Safe to call more than once.
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	fileLogger := zap.NewNop()
	var writer *rotatingLogWriter
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}

		fileConfig := zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
			EncodeDuration: zapcore.SecondsDurationEncoder,
		}

		level := zapcore.InfoLevel
		if opts.Debug {
			level = zapcore.DebugLevel
		}

		var sink zapcore.WriteSyncer
		writer, sink = getLogFileWriter(filepath.Join(opts.Dir, "app.log"))
		fileCore := zapcore.NewCore(
			&customFileEncoder{Encoder: zapcore.NewConsoleEncoder(fileConfig)},
			sink,
			level,
		)
		fileLogger = zap.New(&fieldCore{Core: fileCore})
	}

	console := zap.NewNop()
	if opts.Console {
		consoleConfig := zap.NewDevelopmentConfig()
		consoleConfig.EncoderConfig.EncodeLevel = customLevelEncoder
		consoleConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		consoleConfig.EncoderConfig.EncodeCaller = nil
		consoleConfig.Development = false
		consoleConfig.DisableStacktrace = true
		consoleConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

		var err error
		console, err = consoleConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to build console logger: %w", err)
		}
	}

	annotations = opts.Annotations
	if annotations == nil && os.Getenv("GITHUB_ACTIONS") == "true" {
		annotations = os.Stdout
	}

	_ = Logger.Sync()
	if fileWriter != nil {
		_ = fileWriter.Close()
	}

	Logger = fileLogger
	consoleLogger = console
	fileWriter = writer
	return nil
}

// Sync flushes both loggers.
func Sync() {
	_ = Logger.Sync()
	_ = consoleLogger.Sync()
}

// GenerateRequestID returns a short random id for correlating request and response lines.
func GenerateRequestID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// RequestLogger returns the file logger tagged with request_id.
func RequestLogger(requestID string) *zap.Logger {
	return Logger.With(zap.String("request_id", requestID))
}

// LogRequest records an outgoing HTTP request in the file log.
func LogRequest(requestID, method, endpoint string, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("method", method),
		zap.String("endpoint", endpoint),
	}, fields...)
	RequestLogger(requestID).Info("HTTP request", allFields...)
}

// LogResponse records an HTTP response. Non-2xx responses also go to the console.
func LogResponse(requestID string, statusCode int, durationMs int64, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.Int("status_code", statusCode),
		zap.Int64("duration_ms", durationMs),
	}, fields...)

	reqLogger := RequestLogger(requestID)
	if statusCode >= 200 && statusCode < 300 {
		reqLogger.Info("HTTP response", allFields...)
		return
	}

	reqLogger.Error("HTTP response", allFields...)
	if endpoint := fieldsToString(fields); endpoint != "" {
		consoleLogger.Error(fmt.Sprintf("✗ HTTP request failed [%d] %s", statusCode, endpoint))
	} else {
		consoleLogger.Error(fmt.Sprintf("✗ HTTP request failed [%d]", statusCode))
	}
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
)

func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(colorCyan + "DEBUG" + colorReset)
	case zapcore.InfoLevel:
		enc.AppendString(colorGreen + "SUCCESS" + colorReset) // console INFO is only used by LogSuccess
	case zapcore.WarnLevel:
		enc.AppendString(colorYellow + "WARN" + colorReset)
	case zapcore.ErrorLevel:
		enc.AppendString(colorRed + "ERROR" + colorReset)
	case zapcore.FatalLevel:
		enc.AppendString(colorRed + "FATAL" + colorReset)
	case zapcore.PanicLevel:
		enc.AppendString(colorRed + "PANIC" + colorReset)
	default:
		enc.AppendString(colorWhite + level.String() + colorReset)
	}
}

// LogInfo writes to the file log only.
func LogInfo(message string, fields ...zap.Field) {
	Logger.Info(message, fields...)
}

// LogSuccess writes to the file log and prints a ✓ line on the console.
func LogSuccess(message string, fields ...zap.Field) {
	durationMs := extractDuration(fields)

	Logger.Info(message, fields...)

	if durationMs > 0 {
		consoleLogger.Info(fmt.Sprintf("✓ %s (%dms)", message, durationMs))
	} else {
		consoleLogger.Info("✓ " + message)
	}
}

// LogError writes to the file log, prints a ✗ line and annotates the CI run.
func LogError(message string, fields ...zap.Field) {
	durationMs := extractDuration(fields)

	Logger.Error(message, fields...)

	if durationMs > 0 {
		consoleLogger.Error(fmt.Sprintf("✗ %s (%dms)", message, durationMs))
	} else {
		consoleLogger.Error("✗ " + message)
	}

	annotate(message, fields)
}

// LogWarn writes to the file log only.
func LogWarn(message string, fields ...zap.Field) {
	Logger.Warn(message, fields...)
}

// LogDebug writes to the file log only.
func LogDebug(message string, fields ...zap.Field) {
	Logger.Debug(message, fields...)
}

// LogJSON pretty-prints an API payload into the file log.
func LogJSON(data []byte, label string) {
	var prettyJSON interface{}
	if err := json.Unmarshal(data, &prettyJSON); err == nil {
		formatted, err := json.MarshalIndent(prettyJSON, "", "  ")
		if err == nil {
			Logger.Debug(label)
			Logger.Sugar().Debugf("\n%s\n", string(formatted))
			return
		}
	}
	Logger.Debug(label, zap.String("response", string(data)))
}

func annotate(message string, fields []zap.Field) {
	if annotations == nil {
		return
	}
	for _, field := range fields {
		if field.Type == zapcore.ErrorType {
			if err, ok := field.Interface.(error); ok && err != nil {
				message += ": " + err.Error()
			}
		}
	}
	fmt.Fprintf(annotations, "::error::%s\n", escapeWorkflowData(message))
}

// escapeWorkflowData escapes the characters the Actions runner treats as command syntax.
func escapeWorkflowData(s string) string {
	r := strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	return r.Replace(s)
}

func extractDuration(fields []zap.Field) int64 {
	for _, field := range fields {
		if field.Key == "duration_ms" && field.Type == zapcore.Int64Type {
			return field.Integer
		}
	}
	return 0
}

func fieldsToString(fields []zap.Field) string {
	for _, field := range fields {
		if field.Key == "endpoint" {
			return field.String
		}
	}
	return ""
}

const (
	// MaxLogFileSize is the size at which app.log is truncated.
	MaxLogFileSize = 50 * 1024 * 1024
)

type rotatingLogWriter struct {
	file *os.File
	path string
	mu   sync.Mutex
}

func (w *rotatingLogWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := w.file.Stat()
	if err == nil && info.Size() > MaxLogFileSize {
		w.file.Close()

		w.file, err = os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return 0, fmt.Errorf("failed to truncate log file: %w", err)
		}
	}

	return w.file.Write(p)
}

func (w *rotatingLogWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Sync()
}

func (w *rotatingLogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// getLogFileWriter returns nil for the writer when it fell back to stderr.
func getLogFileWriter(path string) (*rotatingLogWriter, zapcore.WriteSyncer) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file %s: %v, falling back to stderr\n", path, err)
		return nil, zapcore.AddSync(os.Stderr)
	}

	info, err := file.Stat()
	if err == nil && info.Size() > MaxLogFileSize {
		file.Close()
		file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to truncate log file %s: %v, falling back to stderr\n", path, err)
			return nil, zapcore.AddSync(os.Stderr)
		}
	}

	w := &rotatingLogWriter{file: file, path: path}
	return w, zapcore.AddSync(w)
}

// fieldCore keeps With fields itself and hands them to the encoder on every
// entry; customFileEncoder only prints the fields it is given.
type fieldCore struct {
	zapcore.Core
	fields []zapcore.Field
}

func (c *fieldCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	return &fieldCore{Core: c.Core, fields: append(merged, fields...)}
}

func (c *fieldCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *fieldCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	if len(c.fields) == 0 {
		return c.Core.Write(ent, fields)
	}
	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	return c.Core.Write(ent, append(all, fields...))
}

// customFileEncoder writes "time     LEVEL message\t{json fields}" lines.
type customFileEncoder struct {
	zapcore.Encoder
}

func (e *customFileEncoder) Clone() zapcore.Encoder {
	return &customFileEncoder{Encoder: e.Encoder.Clone()}
}

func (e *customFileEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf := buffer.NewPool().Get()

	buf.AppendString(entry.Time.Format("2006-01-02 15:04:05"))
	buf.AppendString("     ")
	buf.AppendString(entry.Level.CapitalString())
	buf.AppendString(" ")
	buf.AppendString(entry.Message)

	if len(fields) > 0 {
		buf.AppendString("\t")
		fieldMap := make(map[string]interface{}, len(fields))
		for _, field := range fields {
			switch field.Type {
			case zapcore.StringType:
				fieldMap[field.Key] = field.String
			case zapcore.Int64Type, zapcore.Int32Type:
				fieldMap[field.Key] = field.Integer
			case zapcore.BoolType:
				fieldMap[field.Key] = field.Integer == 1
			case zapcore.Float64Type:
				fieldMap[field.Key] = math.Float64frombits(uint64(field.Integer))
			case zapcore.ErrorType:
				if err, ok := field.Interface.(error); ok && err != nil {
					fieldMap[field.Key] = err.Error()
				}
			default:
				if field.Interface != nil {
					fieldMap[field.Key] = field.Interface
				} else {
					fieldMap[field.Key] = field.Integer
				}
			}
		}

		if jsonData, err := json.Marshal(fieldMap); err == nil {
			buf.AppendString(string(jsonData))
		}
	}

	buf.AppendString("\n")
	return buf, nil
}
