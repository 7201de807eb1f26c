package stage

import (
	"errors"
	"strings"
)

// Status classifies the result of one provisioning stage.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusSkipped     Status = "skipped"
	StatusRecoverable Status = "recoverable"
	StatusFatal       Status = "fatal"
)

// Outcome is the explicit result every stage returns. Recoverable outcomes are
// logged and the pipeline continues; Fatal outcomes stop it.
type Outcome struct {
	Status Status
	Detail string
	Reason error
}

// Success constructs a successful Outcome.
func Success(detail string) Outcome {
	return Outcome{Status: StatusSuccess, Detail: detail}
}

// Skipped constructs an Outcome for a stage whose work was unnecessary.
func Skipped(detail string) Outcome {
	return Outcome{Status: StatusSkipped, Detail: detail}
}

// Recoverable constructs a soft failure.
func Recoverable(err error) Outcome {
	return Outcome{Status: StatusRecoverable, Reason: err, Detail: errorDetail(err)}
}

// Fatal constructs a failure that aborts the run.
func Fatal(err error) Outcome {
	return Outcome{Status: StatusFatal, Reason: err, Detail: errorDetail(err)}
}

// Failed reports whether the outcome carries an error.
func (o Outcome) Failed() bool {
	return o.Status == StatusRecoverable || o.Status == StatusFatal
}

// IsFatal reports whether the outcome must stop the pipeline.
func (o Outcome) IsFatal() bool {
	return o.Status == StatusFatal
}

// Merge folds several sub-outcomes into one. Any fatal wins, then recoverable
// failures (joined), then success if anything succeeded, else skipped.
func Merge(outcomes ...Outcome) Outcome {
	var fatal, recoverable []error
	var details []string
	succeeded := false
	for _, o := range outcomes {
		switch o.Status {
		case StatusFatal:
			fatal = append(fatal, o.Reason)
		case StatusRecoverable:
			recoverable = append(recoverable, o.Reason)
		case StatusSuccess:
			succeeded = true
		}
		if d := strings.TrimSpace(o.Detail); d != "" {
			details = append(details, d)
		}
	}
	switch {
	case len(fatal) > 0:
		return Fatal(errors.Join(fatal...))
	case len(recoverable) > 0:
		return Recoverable(errors.Join(recoverable...))
	case succeeded:
		return Success(strings.Join(details, "; "))
	default:
		return Skipped(strings.Join(details, "; "))
	}
}

func errorDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
