//go:build !windows

package idle

import "errors"

const supported = false

var errUnsupported = errors.New("idle time is only available on windows")

func seconds() (float64, error) {
	return 0, errUnsupported
}
