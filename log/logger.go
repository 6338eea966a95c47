package log

import "context"

// Logger is the logging contract used across the BFF and the CLI. Fields are
// free-form maps so call sites stay independent of the backing library.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]any)
	Info(ctx context.Context, msg string, fields ...map[string]any)
	Warn(ctx context.Context, msg string, fields ...map[string]any)
	Error(ctx context.Context, msg string, err error, fields ...map[string]any)
	// Fatal logs and then exits the process via the underlying logger.
	Fatal(ctx context.Context, msg string, err error, fields ...map[string]any)

	// With returns a derived logger carrying the given structured fields.
	With(fields map[string]any) Logger
}
