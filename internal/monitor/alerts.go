package monitor

import "log"

// AlertSink interface for pluggable alert delivery.
type AlertSink interface {
	Send(message string) error
}

// LogSink delivers alerts to the process log.
type LogSink struct{}

func (LogSink) Send(message string) error {
	log.Printf("alert: %s", message)
	return nil
}
