package monitor

import (
	"context"
	"fmt"
	"log"
	"time"

	"execution-core/internal/events"
)

// Monitor watches risk events and forwards them as alerts.
type Monitor struct {
	Bus     *events.Bus
	AlertFn func(string)
}

func (m *Monitor) Start(ctx context.Context) {
	if m.Bus == nil || m.AlertFn == nil {
		log.Println("monitor not fully configured; skipping")
		return
	}
	denied, unsubDenied := m.Bus.Subscribe(events.EventRiskDenied, 50)
	warned, unsubWarned := m.Bus.Subscribe(events.EventRiskWarning, 50)
	go func() {
		defer unsubDenied()
		defer unsubWarned()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-denied:
				if !ok {
					return
				}
				m.AlertFn(formatAlert("risk denied", msg))
			case msg, ok := <-warned:
				if !ok {
					return
				}
				m.AlertFn(formatAlert("risk warning", msg))
			}
		}
	}()
}

func formatAlert(kind string, msg any) string {
	return fmt.Sprintf("[%s] %s: %v", time.Now().Format(time.RFC3339), kind, msg)
}
