package events

// Event enumerates high-level topics inside the execution engine.
type Event string

const (
	EventOrderSubmitted Event = "order.submitted"
	EventOrderResting   Event = "order.resting"
	EventOrderFilled    Event = "order.filled"
	EventOrderRejected  Event = "order.rejected"
	EventPositionChange Event = "position.change"
	EventTradeClosed    Event = "trade.closed"
	EventRiskDenied     Event = "risk.denied"
	EventRiskWarning    Event = "risk.warning"
)
