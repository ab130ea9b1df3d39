package exchange

// Market distinguishes perpetual and spot venues.
type Market string

const (
	MarketPerp Market = "PERP"
	MarketSpot Market = "SPOT"
)

// SpotIndexOffset is added to a spot universe index to form the wire asset id.
// Perpetual assets use the raw universe index.
const SpotIndexOffset = 10000

// OrderKind selects the order spec variant.
type OrderKind string

const (
	KindLimit   OrderKind = "LIMIT"
	KindTrigger OrderKind = "TRIGGER"
)

// TimeInForce captures TIF semantics for limit orders.
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC" // Good Till Cancelled
	TIFIOC TimeInForce = "IOC" // Immediate Or Cancel
)

// TriggerRole marks a trigger order as stop-loss or take-profit.
type TriggerRole string

const (
	RoleStopLoss   TriggerRole = "SL"
	RoleTakeProfit TriggerRole = "TP"
)

// Grouping tags how an order relates to a position on the venue side.
type Grouping string

const (
	GroupingNone           Grouping = "na"
	GroupingPositionLinked Grouping = "positionTpsl"
)

// OrderSpec is either a limit spec (TimeInForce set) or a trigger spec
// (TriggerPrice/IsMarket/Role set), selected by Kind.
type OrderSpec struct {
	Kind         OrderKind
	TimeInForce  TimeInForce
	TriggerPrice string
	IsMarket     bool
	Role         TriggerRole
}

// OrderRequest captures a fully resolved order to be sent to the venue.
// Price and Size are already wire-formatted strings.
type OrderRequest struct {
	AssetIndex int
	IsBuy      bool
	Price      string
	Size       string
	ReduceOnly bool
	Spec       OrderSpec
	Grouping   Grouping
	ClientID   string // optional client order id
}

// Book is the current top-of-book for an instrument.
type Book struct {
	BestBid float64
	BestAsk float64
}

// Mid returns the book midpoint.
func (b Book) Mid() float64 {
	return (b.BestBid + b.BestAsk) / 2
}

// AssetMeta describes one instrument in a venue universe.
type AssetMeta struct {
	Symbol       string `json:"name"`
	Index        int    `json:"index"`
	SizeDecimals int    `json:"szDecimals"`
}

// Universe is the metadata set for one market type. PairByBase maps a spot
// base token (e.g. "PURR") to its pair display name (e.g. "PURR/USDC");
// it is empty for perpetual universes.
type Universe struct {
	Assets     []AssetMeta
	PairByBase map[string]string
}

// RestingStatus is the venue ack for an order resting on the book.
type RestingStatus struct {
	OrderID int64 `json:"oid"`
}

// FilledStatus is the venue ack for a fully filled order.
type FilledStatus struct {
	OrderID   int64  `json:"oid"`
	TotalSize string `json:"totalSz"`
	AvgPrice  string `json:"avgPx"`
}

// OrderStatus is one raw per-order status entry. Exactly one of the fields is
// normally set; any shape with none set (e.g. "waiting for trigger") is
// treated as accepted-without-id downstream.
type OrderStatus struct {
	Error   string         `json:"error,omitempty"`
	Resting *RestingStatus `json:"resting,omitempty"`
	Filled  *FilledStatus  `json:"filled,omitempty"`
}

// OrderResponse is the raw venue response for a submission. Statuses carries
// one entry per order in the request.
type OrderResponse struct {
	Statuses []OrderStatus
}

// OpenOrder identifies a resting order on the venue.
type OpenOrder struct {
	Coin    string
	OrderID int64
}

// CancelRequest identifies one order to cancel.
type CancelRequest struct {
	AssetIndex int
	OrderID    int64
}
