package logger

import (
	"io"
	"os"

	"slidecraft/backend/go/internal/models"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry with the structured fields the deck service
// attaches to every line. The With* methods return a new Logger and leave
// the receiver untouched, so a service-wide logger can be narrowed per job.
type Logger struct {
	entry *logrus.Entry
}

// Init configures the global logrus logger: JSON lines on stdout.
func Init(level logrus.Level) {
	configure(logrus.StandardLogger(), level, os.Stdout)
}

// InitFromString is Init with a level name such as "debug"; unknown names fall back to info.
func InitFromString(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Init(lvl)
}

func configure(l *logrus.Logger, level logrus.Level, out io.Writer) {
	l.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	l.SetOutput(out)
	l.SetLevel(level)
}

// New returns a logger on the global logrus instance tagged with the service name.
func New(serviceName string) *Logger {
	return NewWith(logrus.StandardLogger(), serviceName)
}

// NewWith is New on a caller-owned logrus instance, e.g. a test logger.
func NewWith(base *logrus.Logger, serviceName string) *Logger {
	return &Logger{entry: base.WithField("service_name", serviceName)}
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewWith(l, "discard")
}

func (l *Logger) with(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithJob tags the entry with the job (presentation) id.
func (l *Logger) WithJob(jobID string) *Logger {
	return l.with("job_id", jobID)
}

// WithField adds one arbitrary field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(key, value)
}

// WithRequest adds HTTP request information.
func (l *Logger) WithRequest(req models.RequestInfo) *Logger {
	return l.with("request_info", req)
}

// WithError adds structured error information.
func (l *Logger) WithError(err models.ErrorInfo) *Logger {
	return l.with("error", err)
}

// WithPayload adds business data.
func (l *Logger) WithPayload(payload map[string]interface{}) *Logger {
	return l.with("payload", payload)
}

func (l *Logger) Info(message string) {
	l.entry.Info(message)
}

func (l *Logger) Warn(message string) {
	l.entry.Warn(message)
}

func (l *Logger) Error(message string) {
	l.entry.Error(message)
}

func (l *Logger) Debug(message string) {
	l.entry.Debug(message)
}

// Fatal logs and exits the process.
func (l *Logger) Fatal(message string) {
	l.entry.Fatal(message)
}
