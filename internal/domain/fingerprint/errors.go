package fingerprint

import "errors"

// ErrNoSignals is returned when no session marker is available.
var ErrNoSignals = errors.New("fingerprint: no environment signals")
