// internal/utils/logger.go
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"quadica-engraving-core/internal/config"
)

// LoggerManager manages application logging
type LoggerManager struct {
	logger *zap.Logger
	config *config.LoggingConfig
}

// NewLogger creates a new logger instance based on configuration
func NewLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	manager := &LoggerManager{
		config: cfg,
	}

	logger, err := manager.createLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	manager.logger = logger
	return logger, nil
}

// createLogger creates the zap logger with proper configuration
func (lm *LoggerManager) createLogger() (*zap.Logger, error) {
	encoderConfig := lm.getEncoderConfig()

	var encoder zapcore.Encoder
	switch lm.config.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	writeSyncer, err := lm.getWriteSyncer()
	if err != nil {
		return nil, fmt.Errorf("failed to create write syncer: %w", err)
	}

	level, err := lm.getLogLevel()
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)

	logger := zap.New(core, lm.getLoggerOptions()...)

	return logger, nil
}

// getEncoderConfig returns encoder configuration based on format
func (lm *LoggerManager) getEncoderConfig() zapcore.EncoderConfig {
	config := zap.NewProductionEncoderConfig()

	config.TimeKey = "timestamp"
	config.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)

	config.LevelKey = "level"
	config.EncodeLevel = zapcore.LowercaseLevelEncoder

	config.CallerKey = "caller"
	config.EncodeCaller = zapcore.ShortCallerEncoder

	config.MessageKey = "message"

	config.StacktraceKey = "stacktrace"

	if lm.config.Format == "console" {
		config.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	}

	return config
}

// getWriteSyncer returns write syncer based on output configuration
func (lm *LoggerManager) getWriteSyncer() (zapcore.WriteSyncer, error) {
	switch lm.config.Output {
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	default:
		if lm.config.Output == "" {
			lm.config.Output = "./logs/engraver.log"
		}

		logDir := filepath.Dir(lm.config.Output)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		lumber := &lumberjack.Logger{
			Filename:   lm.config.Output,
			MaxSize:    lm.config.MaxSize,
			MaxBackups: lm.config.MaxBackups,
			MaxAge:     lm.config.MaxAge,
			Compress:   lm.config.Compress,
		}

		return zapcore.AddSync(lumber), nil
	}
}

// getLogLevel parses and returns log level
func (lm *LoggerManager) getLogLevel() (zapcore.Level, error) {
	switch lm.config.Level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", lm.config.Level)
	}
}

// getLoggerOptions returns logger options
func (lm *LoggerManager) getLoggerOptions() []zap.Option {
	options := []zap.Option{
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	}

	options = append(options, zap.AddStacktrace(zapcore.ErrorLevel))

	return options
}

// EngraveLogger wraps zap.Logger with batch/array engraving context.
type EngraveLogger struct {
	*zap.Logger
	batchID     string
	qsaSequence string
}

// NewEngraveLogger creates a logger scoped to one batch/QSA sequence.
func NewEngraveLogger(baseLogger *zap.Logger, batchID, qsaSequence string) *EngraveLogger {
	logger := baseLogger.With(
		zap.String("batch_id", batchID),
		zap.String("qsa_sequence", qsaSequence),
		zap.String("component", "engrave"),
	)

	return &EngraveLogger{
		Logger:      logger,
		batchID:     batchID,
		qsaSequence: qsaSequence,
	}
}

// LogArrayRender logs the outcome of rendering one array's SVG.
func (el *EngraveLogger) LogArrayRender(designCode string, duration time.Duration, success bool, err error) {
	fields := []zap.Field{
		zap.String("design_code", designCode),
		zap.Duration("duration", duration),
		zap.Bool("success", success),
	}

	if err != nil {
		fields = append(fields, zap.Error(err))
		el.Error("array render failed", fields...)
	} else {
		el.Info("array render completed", fields...)
	}
}

// LogSerialAllocation logs the outcome of a reserve/commit/void call.
func (el *EngraveLogger) LogSerialAllocation(action string, count int, err error) {
	fields := []zap.Field{
		zap.String("action", action),
		zap.Int("count", count),
	}

	if err != nil {
		fields = append(fields, zap.Error(err))
		el.Error("serial allocation event", fields...)
	} else {
		el.Info("serial allocation event", fields...)
	}
}

// LogRaceDetected logs a concurrent-completion race tolerated by the
// lifecycle engine (§4.I "Race safety") — not an error, just a signal
// worth keeping in the trail.
func (el *EngraveLogger) LogRaceDetected(operation string) {
	el.Warn("concurrent completion race tolerated",
		zap.String("operation", operation),
	)
}

// OperationLogger provides structured start/success/error logging for
// one lifecycle operation invocation.
type OperationLogger struct {
	logger      *zap.Logger
	operationID string
	startTime   time.Time
}

// NewOperationLogger creates an operation-specific logger.
func NewOperationLogger(baseLogger *zap.Logger, operationType, operationID string) *OperationLogger {
	logger := baseLogger.With(
		zap.String("operation_type", operationType),
		zap.String("operation_id", operationID),
		zap.String("component", "operation"),
	)

	return &OperationLogger{
		logger:      logger,
		operationID: operationID,
		startTime:   time.Now(),
	}
}

// Start logs operation start
func (ol *OperationLogger) Start(fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.Time("start_time", ol.startTime),
	}, fields...)

	ol.logger.Info("operation started", allFields...)
}

// Success logs successful operation completion
func (ol *OperationLogger) Success(fields ...zap.Field) {
	duration := time.Since(ol.startTime)
	allFields := append([]zap.Field{
		zap.Duration("duration", duration),
		zap.Bool("success", true),
	}, fields...)

	ol.logger.Info("operation completed successfully", allFields...)
}

// Error logs operation failure
func (ol *OperationLogger) Error(err error, fields ...zap.Field) {
	duration := time.Since(ol.startTime)
	allFields := append([]zap.Field{
		zap.Duration("duration", duration),
		zap.Bool("success", false),
		zap.Error(err),
	}, fields...)

	ol.logger.Error("operation failed", allFields...)
}

// Progress logs operation progress
func (ol *OperationLogger) Progress(message string, progress float64, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.Float64("progress", progress),
		zap.Duration("elapsed", time.Since(ol.startTime)),
	}, fields...)

	ol.logger.Info(message, allFields...)
}

// ServiceLogger provides service-level logging functionality
type ServiceLogger struct {
	*zap.Logger
	serviceName string
}

// NewServiceLogger creates a service-specific logger
func NewServiceLogger(baseLogger *zap.Logger, serviceName string) *ServiceLogger {
	logger := baseLogger.With(
		zap.String("service", serviceName),
		zap.String("component", "service"),
	)

	return &ServiceLogger{
		Logger:      logger,
		serviceName: serviceName,
	}
}

// LogServiceStart logs service startup
func (sl *ServiceLogger) LogServiceStart(version string, config interface{}) {
	sl.Info("service starting",
		zap.String("version", version),
		zap.Any("config", config),
	)
}

// LogServiceStop logs service shutdown
func (sl *ServiceLogger) LogServiceStop(reason string) {
	sl.Info("service stopping",
		zap.String("reason", reason),
	)
}

// LogAPIRequest logs HTTP API requests
func (sl *ServiceLogger) LogAPIRequest(method, path, userAgent, clientIP string, statusCode int, duration time.Duration) {
	level := zapcore.InfoLevel
	if statusCode >= 400 {
		level = zapcore.WarnLevel
	}
	if statusCode >= 500 {
		level = zapcore.ErrorLevel
	}

	if ce := sl.Check(level, "API request"); ce != nil {
		ce.Write(
			zap.String("method", method),
			zap.String("path", path),
			zap.String("user_agent", userAgent),
			zap.String("client_ip", clientIP),
			zap.Int("status_code", statusCode),
			zap.Duration("duration", duration),
		)
	}
}

// LogDatabaseQuery logs database queries (for debugging)
func (sl *ServiceLogger) LogDatabaseQuery(query string, args []interface{}, duration time.Duration, err error) {
	fields := []zap.Field{
		zap.String("query", query),
		zap.Any("args", args),
		zap.Duration("duration", duration),
	}

	if err != nil {
		fields = append(fields, zap.Error(err))
		sl.Error("database query failed", fields...)
	} else {
		sl.Debug("database query executed", fields...)
	}
}

// AuditLogger provides audit logging for batch/serial lifecycle
// transitions (§4.I, §4.J).
type AuditLogger struct {
	logger *zap.Logger
}

// NewAuditLogger creates an audit-specific logger
func NewAuditLogger(baseLogger *zap.Logger) *AuditLogger {
	logger := baseLogger.With(
		zap.String("component", "audit"),
	)

	return &AuditLogger{
		logger: logger,
	}
}

// LogSerialReservation logs a reserve() call outcome.
func (al *AuditLogger) LogSerialReservation(batchID, qsaSequence string, count int, userID string, success bool) {
	al.logger.Info("serial reservation",
		zap.String("batch_id", batchID),
		zap.String("qsa_sequence", qsaSequence),
		zap.Int("count", count),
		zap.String("user_id", userID),
		zap.Bool("success", success),
		zap.String("action", "reserve_serials"),
	)
}

// LogConfigChange logs element-config changes made by an operator.
func (al *AuditLogger) LogConfigChange(designCode, userID string, oldConfig, newConfig interface{}) {
	al.logger.Info("element config changed",
		zap.String("design_code", designCode),
		zap.String("user_id", userID),
		zap.Any("old_config", oldConfig),
		zap.Any("new_config", newConfig),
		zap.String("action", "configure_design"),
	)
}

// LogSerialTransition logs a commit()/void() transition (audit trail).
func (al *AuditLogger) LogSerialTransition(batchID, qsaSequence string, count int, fromStatus, toStatus string) {
	al.logger.Info("serial status transition",
		zap.String("batch_id", batchID),
		zap.String("qsa_sequence", qsaSequence),
		zap.Int("count", count),
		zap.String("from_status", fromStatus),
		zap.String("to_status", toStatus),
		zap.String("action", "serial_transition"),
	)
}

// SecurityLogger provides security-related logging
type SecurityLogger struct {
	logger *zap.Logger
}

// NewSecurityLogger creates a security-specific logger
func NewSecurityLogger(baseLogger *zap.Logger) *SecurityLogger {
	logger := baseLogger.With(
		zap.String("component", "security"),
	)

	return &SecurityLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs authentication attempts
func (sl *SecurityLogger) LogAuthAttempt(userID, clientIP, userAgent string, success bool, reason string) {
	level := zapcore.InfoLevel
	if !success {
		level = zapcore.WarnLevel
	}

	if ce := sl.logger.Check(level, "authentication attempt"); ce != nil {
		ce.Write(
			zap.String("user_id", userID),
			zap.String("client_ip", clientIP),
			zap.String("user_agent", userAgent),
			zap.Bool("success", success),
			zap.String("reason", reason),
			zap.String("action", "auth_attempt"),
		)
	}
}

// LogSuspiciousActivity logs suspicious security events
func (sl *SecurityLogger) LogSuspiciousActivity(description, clientIP, userAgent string, severity string) {
	sl.logger.Warn("suspicious activity detected",
		zap.String("description", description),
		zap.String("client_ip", clientIP),
		zap.String("user_agent", userAgent),
		zap.String("severity", severity),
		zap.String("action", "suspicious_activity"),
	)
}

// LogRateLimitViolation logs rate limit violations
func (sl *SecurityLogger) LogRateLimitViolation(clientIP, endpoint string, requestCount int, timeWindow string) {
	sl.logger.Warn("rate limit violation",
		zap.String("client_ip", clientIP),
		zap.String("endpoint", endpoint),
		zap.Int("request_count", requestCount),
		zap.String("time_window", timeWindow),
		zap.String("action", "rate_limit_violation"),
	)
}

// LoggerWithRequestID adds request ID to logger
func LoggerWithRequestID(logger *zap.Logger, requestID string) *zap.Logger {
	return logger.With(zap.String("request_id", requestID))
}

// LoggerWithUserID adds user ID to logger
func LoggerWithUserID(logger *zap.Logger, userID string) *zap.Logger {
	return logger.With(zap.String("user_id", userID))
}

// LoggerWithTraceID adds trace ID for distributed tracing
func LoggerWithTraceID(logger *zap.Logger, traceID string) *zap.Logger {
	return logger.With(zap.String("trace_id", traceID))
}

// LogError is a helper function for consistent error logging
func LogError(logger *zap.Logger, message string, err error, fields ...zap.Field) {
	allFields := append([]zap.Field{zap.Error(err)}, fields...)
	logger.Error(message, allFields...)
}

// LogPanic logs and recovers from panics
func LogPanic(logger *zap.Logger) {
	if r := recover(); r != nil {
		logger.Fatal("application panic",
			zap.Any("panic", r),
			zap.Stack("stacktrace"),
		)
	}
}

// CloseLogger flushes any buffered log entries.
func CloseLogger(logger *zap.Logger) error {
	return logger.Sync()
}
