// Package idle reports how long the desktop user has been inactive.
package idle

// Supported reports whether Seconds can measure idle time on this platform.
func Supported() bool { return supported }

// Seconds returns the time since the last keyboard or mouse input, in
// seconds. It returns 0 where the platform offers no way to measure it.
func Seconds() float64 {
	s, err := seconds()
	if err != nil {
		return 0
	}
	return s
}
