package dj

import "log"

// Observer receives the engine's log entries and user-visible notices. The
// core never renders anything itself; the hosting layer decides what a
// notice becomes (toast, status line, nothing).
type Observer interface {
	Log(level, msg string)
	Notice(kind, msg string)
}

// Notice kinds.
const (
	NoticeInfo    = "info"
	NoticeSuccess = "success"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// LogObserver writes everything through the standard logger.
type LogObserver struct{}

func (LogObserver) Log(level, msg string) {
	log.Printf("[%s] %s", level, msg)
}

func (LogObserver) Notice(kind, msg string) {
	log.Printf("notice/%s: %s", kind, msg)
}
