// Package outcome is the result type returned by event handlers.
//
// An event handler has no caller to report to, so instead of an error it
// returns a Result: OK, Skipped (log and acknowledge) or Failed (log and
// let the delivery platform redeliver).
package outcome

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Kind classifies a Result.
type Kind int

const (
	KindOK Kind = iota
	KindSkipped
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindSkipped:
		return "skipped"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of handling one event.
type Result struct {
	Kind   Kind
	Reason string
	Fields []zap.Field
	Err    error
}

// OK reports a handled event.
func OK() Result {
	return Result{Kind: KindOK}
}

// Skip reports an event that was intentionally not acted upon.
func Skip(reason string, fields ...zap.Field) Result {
	return Result{Kind: KindSkipped, Reason: reason, Fields: fields}
}

// Fail reports a downstream failure that should be retried by redelivery.
func Fail(err error) Result {
	return Result{Kind: KindFailed, Reason: err.Error(), Err: err}
}

// Failf wraps err with a message and reports it as a failure.
func Failf(err error, format string, args ...any) Result {
	return Fail(fmt.Errorf(format+": %w", append(args, err)...))
}

// Failed reports whether the result should trigger redelivery.
func (r Result) Failed() bool {
	return r.Kind == KindFailed
}

// Merge combines independent results: any failure wins, then OK, then skip.
func Merge(results ...Result) Result {
	var errs []error
	merged := Result{Kind: KindSkipped}
	for _, r := range results {
		switch r.Kind {
		case KindFailed:
			errs = append(errs, r.Err)
		case KindOK:
			merged = OK()
		case KindSkipped:
			if merged.Kind == KindSkipped && merged.Reason == "" {
				merged = r
			}
		}
	}
	if len(errs) > 0 {
		return Fail(errors.Join(errs...))
	}
	if len(results) == 0 {
		return OK()
	}
	return merged
}
