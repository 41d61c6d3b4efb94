package executor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"qa-harness/internal/logger"
	"qa-harness/internal/types"
)

// Outcome is the classification of a finished check
type Outcome string

const (
	Pass  Outcome = "PASS"
	Fail  Outcome = "FAIL"
	Skip  Outcome = "SKIP"
	XFail Outcome = "XFAIL"
	Error Outcome = "ERROR"
)

// Check is a single named assertion against a running service
type Check struct {
	Suite string
	Name  string
	Run   func(ctx context.Context) error
}

// CheckResult represents the result of a single check
type CheckResult struct {
	Suite    string        `json:"suite"`
	Name     string        `json:"name"`
	Outcome  Outcome       `json:"outcome"`
	Duration time.Duration `json:"duration"`
	Message  string        `json:"message,omitempty"`
	Repro    string        `json:"repro,omitempty"`
	Attempts int           `json:"attempts"`
}

// RunConfig holds configuration for check execution
type RunConfig struct {
	// Timeout bounds a single check; zero means no bound beyond the
	// per-request timeouts
	Timeout time.Duration
	Retry   RetryConfig
}

// RetryConfig holds configuration for retry behavior. Only transport
// failures are retried.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// Runner executes checks one after another
type Runner struct {
	config RunConfig
	log    *logger.Logger
}

// NewRunner creates a new check runner
func NewRunner(config RunConfig, log *logger.Logger) *Runner {
	if config.Retry.Attempts < 1 {
		config.Retry.Attempts = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{config: config, log: log}
}

// Run executes every check in order. A fatal discovery error marks the
// failing check and every remaining check as ERROR without running them.
func (r *Runner) Run(ctx context.Context, checks []Check) []CheckResult {
	results := make([]CheckResult, 0, len(checks))

	var aborted error
	for _, check := range checks {
		if aborted == nil && ctx.Err() != nil {
			aborted = ctx.Err()
		}
		if aborted != nil {
			res := CheckResult{
				Suite:   check.Suite,
				Name:    check.Name,
				Outcome: Error,
				Message: "not run: " + aborted.Error(),
			}
			r.log.LogCheck(check.Name, string(res.Outcome), 0, nil)
			results = append(results, res)
			continue
		}

		res, err := r.runOne(ctx, check)
		r.log.LogCheck(check.Name, string(res.Outcome), res.Duration, err)
		results = append(results, res)

		var derr *types.DiscoveryError
		if errors.As(err, &derr) {
			aborted = fmt.Errorf("session aborted after discovery failure in %s", check.Name)
		}
	}
	return results
}

// runOne executes a single check with retries
func (r *Runner) runOne(ctx context.Context, check Check) (CheckResult, error) {
	res := CheckResult{Suite: check.Suite, Name: check.Name}

	start := time.Now()
	var err error
	for attempt := 1; attempt <= r.config.Retry.Attempts; attempt++ {
		res.Attempts = attempt
		err = r.invoke(ctx, check)
		if err == nil || !isTransient(err) || ctx.Err() != nil {
			break
		}
		if attempt < r.config.Retry.Attempts {
			time.Sleep(r.config.Retry.Delay)
		}
	}
	res.Duration = time.Since(start)
	res.Outcome, res.Message, res.Repro = Classify(err)
	return res, err
}

// invoke runs the check body under the per-check timeout, turning panics
// into errors
func (r *Runner) invoke(ctx context.Context, check Check) (err error) {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return check.Run(ctx)
}

// Classify maps a check error to its outcome, message and repro hint
func Classify(err error) (Outcome, string, string) {
	if err == nil {
		return Pass, "", ""
	}

	var derr *types.DiscoveryError
	if errors.As(err, &derr) {
		return Error, err.Error(), ""
	}
	var skip *types.SkipError
	if errors.As(err, &skip) {
		return Skip, skip.Reason, ""
	}
	var defect *types.KnownDefectError
	if errors.As(err, &defect) {
		return XFail, defect.Reason, defect.Repro
	}
	return Fail, err.Error(), ""
}

// isTransient reports whether err came from the transport rather than from
// an assertion
func isTransient(err error) bool {
	var uerr *url.Error
	return errors.As(err, &uerr)
}
