package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Extractor reads a string attribute from the context.
type Extractor func(context.Context) (string, bool)

// NonEmpty adapts a plain context getter into an Extractor that reports
// the empty string as missing.
func NonEmpty(get func(context.Context) string) Extractor {
	return func(ctx context.Context) (string, bool) {
		v := get(ctx)
		return v, v != ""
	}
}

// Logger builds events from the context and stores them.
type Logger struct {
	storage   Storage
	tenantID  func(context.Context) (int64, bool)
	requestID Extractor
	ip        Extractor
}

// Option configures a Logger.
type Option func(*Logger)

// WithTenantExtractor fills Event.TenantID from the bound tenant.
func WithTenantExtractor(fn func(context.Context) (int64, bool)) Option {
	return func(l *Logger) { l.tenantID = fn }
}

func WithRequestIDExtractor(fn Extractor) Option {
	return func(l *Logger) { l.requestID = fn }
}

func WithIPExtractor(fn Extractor) Option {
	return func(l *Logger) { l.ip = fn }
}

// NewLogger creates a Logger writing to storage.
func NewLogger(storage Storage, opts ...Option) (*Logger, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	l := &Logger{storage: storage}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Log records a successful action.
func (l *Logger) Log(ctx context.Context, action string, opts ...EventOption) error {
	return l.store(ctx, action, ResultSuccess, nil, opts)
}

// LogError records an action that failed with err.
func (l *Logger) LogError(ctx context.Context, action string, err error, opts ...EventOption) error {
	return l.store(ctx, action, ResultError, err, opts)
}

// Find returns stored events matching c.
func (l *Logger) Find(ctx context.Context, c Criteria) ([]Event, error) {
	return l.storage.Query(ctx, c)
}

func (l *Logger) store(ctx context.Context, action string, result Result, cause error, opts []EventOption) error {
	e := l.fromContext(ctx)
	e.ID = uuid.New()
	e.Action = action
	e.Result = result
	e.CreatedAt = time.Now()
	if cause != nil {
		e.Error = cause.Error()
	}
	for _, opt := range opts {
		opt(&e)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	return l.storage.Store(ctx, e)
}

func (l *Logger) fromContext(ctx context.Context) Event {
	var e Event
	if l.tenantID != nil {
		if id, ok := l.tenantID(ctx); ok {
			e.TenantID = &id
		}
	}
	if l.requestID != nil {
		if v, ok := l.requestID(ctx); ok {
			e.RequestID = v
		}
	}
	if l.ip != nil {
		if v, ok := l.ip(ctx); ok {
			e.IP = v
		}
	}
	return e
}
