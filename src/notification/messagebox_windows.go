//go:build windows

package notification

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	mbOK              = 0x00000000
	mbIconInformation = 0x00000040
	mbSetForeground   = 0x00010000
	mbTopmost         = 0x00040000
)

var (
	user32          = windows.NewLazySystemDLL("user32.dll")
	procMessageBoxW = user32.NewProc("MessageBoxW")
)

// messageBox shows a modal message box. It blocks until dismissed, so it is only
// ever run behind a Dispatcher.
type messageBox struct{}

func newMessageBox() Notifier { return messageBox{} }

func (messageBox) Notify(text string) error {
	titlePtr, err := syscall.UTF16PtrFromString(Title)
	if err != nil {
		return err
	}
	bodyPtr, err := syscall.UTF16PtrFromString(Body(text))
	if err != nil {
		return err
	}
	if err := procMessageBoxW.Find(); err != nil {
		return err
	}
	procMessageBoxW.Call(
		0,
		uintptr(unsafe.Pointer(bodyPtr)),
		uintptr(unsafe.Pointer(titlePtr)),
		uintptr(mbOK|mbIconInformation|mbSetForeground|mbTopmost),
	)
	return nil
}
