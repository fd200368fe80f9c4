// internal/model/lifecycle.go
package model

// Flag names a non-error outcome of an idempotent lifecycle RPC (§6).
type Flag string

const (
	FlagAlreadyDone    Flag = "already_done"
	FlagAlreadyStarted Flag = "already_started"
	FlagRaceDetected   Flag = "race_detected"
	FlagUseRetry       Flag = "use_retry"
)

// TransitionResult is the uniform return shape of every lifecycle RPC:
// {success, flags, data?, error?}.
type TransitionResult struct {
	Success bool
	Flags   map[Flag]bool
	Serials []Serial
	Err     error
}

// HasFlag reports whether a flag is set on the result.
func (r TransitionResult) HasFlag(f Flag) bool {
	return r.Flags[f]
}

func newResult() TransitionResult {
	return TransitionResult{Flags: make(map[Flag]bool)}
}

// Ok builds a successful result carrying the given serials and flags.
func Ok(serials []Serial, flags ...Flag) TransitionResult {
	r := newResult()
	r.Success = true
	r.Serials = serials
	for _, f := range flags {
		r.Flags[f] = true
	}
	return r
}

// Failed builds a failed result carrying err.
func Failed(err error) TransitionResult {
	r := newResult()
	r.Success = false
	r.Err = err
	return r
}
