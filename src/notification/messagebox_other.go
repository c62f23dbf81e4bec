//go:build !windows

package notification

import "log"

func newMessageBox() Notifier {
	log.Printf("notification: message boxes are Windows-only, logging instead")
	return Log{}
}
