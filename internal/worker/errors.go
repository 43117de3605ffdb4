package worker

import "errors"

// ErrDirtyExit is recorded for jobs still in flight when the worker
// deregisters.
var ErrDirtyExit = errors.New("dirty exit: worker exited while processing job")
