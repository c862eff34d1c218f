//go:build windows

package idle

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

const supported = true

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetLastInputInfo = user32.NewProc("GetLastInputInfo")
)

// lastInputInfo mirrors LASTINPUTINFO.
type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

func seconds() (float64, error) {
	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	r, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if r == 0 {
		return 0, err
	}
	// dwTime is a 32-bit tick count; the subtraction wraps with it.
	elapsed := uint32(windows.GetTickCount64()) - info.dwTime
	return float64(elapsed) / 1000, nil
}
