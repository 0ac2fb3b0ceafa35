package protocol

// Kind identifies which variant of Reply is populated.
type Kind string

// Reply kinds
const (
	KindScalar        Kind = "scalar"
	KindProfile       Kind = "profile"
	KindTrainSchedule Kind = "train_schedule"
	KindTicketOptions Kind = "ticket_options"
	KindOrders        Kind = "orders"
	KindOpaque        Kind = "opaque"
	KindDecodeFailure Kind = "decode_failure"
)

// Outcome is how a reply should be presented.
type Outcome string

// Outcomes
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeInfo    Outcome = "info"
)

// Code is the value of a scalar reply.
type Code string

// Scalar codes
const (
	CodeSuccess Code = "success" // "0"
	CodeFailure Code = "failure" // "-1"
	CodeQueued  Code = "queued"  // buy_ticket placed on the standby queue
	CodeBye     Code = "bye"     // backend acknowledged exit
	CodeLiteral Code = "literal" // a bare number, see Scalar.Value
)

// Order statuses
const (
	OrderSuccess  = "success"
	OrderPending  = "pending"
	OrderRefunded = "refunded"
)

// Reply is a decoded backend reply. Exactly one of the variant pointers
// matching Kind is set; KindOpaque uses only Raw.
type Reply struct {
	Command string  `json:"command"`
	Kind    Kind    `json:"kind"`
	Outcome Outcome `json:"outcome"`
	Raw     string  `json:"raw"`

	Scalar  *Scalar        `json:"scalar,omitempty"`
	Profile *Profile       `json:"profile,omitempty"`
	Train   *TrainSchedule `json:"train,omitempty"`
	Tickets *TicketOptions `json:"tickets,omitempty"`
	Orders  *Orders        `json:"orders,omitempty"`
	Failure *DecodeFailure `json:"failure,omitempty"`
}

// Scalar is a single-token reply.
type Scalar struct {
	Code  Code  `json:"code"`
	Value int64 `json:"value,omitempty"`
}

// Profile is a user record.
type Profile struct {
	Username  string `json:"username"`
	RealName  string `json:"real_name"`
	Email     string `json:"email"`
	Privilege string `json:"privilege"`
}

// TrainSchedule is a train and its stops in order.
type TrainSchedule struct {
	TrainID string `json:"train_id"`
	Type    string `json:"type"`
	Stops   []Stop `json:"stops"`
}

// Stop is one station of a train schedule. SeatsToNext is "x" on the last stop.
type Stop struct {
	Station         string `json:"station"`
	Arrival         string `json:"arrival"`
	Departure       string `json:"departure"`
	CumulativePrice int64  `json:"cumulative_price"`
	SeatsToNext     string `json:"seats_to_next"`
}

// TicketOptions is the result of query_ticket or query_transfer.
type TicketOptions struct {
	Count int         `json:"count"`
	Rows  []TicketRow `json:"rows"`
}

// TicketRow is one train leg between two stations.
type TicketRow struct {
	TrainID    string `json:"train_id"`
	From       string `json:"from"`
	DepartTime string `json:"depart_time"`
	To         string `json:"to"`
	ArriveTime string `json:"arrive_time"`
	Price      int64  `json:"price"`
	Seats      int64  `json:"seats"`
}

// Orders is the result of query_order.
type Orders struct {
	Count int        `json:"count"`
	Rows  []OrderRow `json:"rows"`
	// Mismatch is set when the number of rows differs from Count.
	Mismatch string `json:"mismatch,omitempty"`
}

// OrderRow is one order. When Err is set the line could not be parsed and
// only Raw is meaningful.
type OrderRow struct {
	Status     string `json:"status,omitempty"`
	TrainID    string `json:"train_id,omitempty"`
	From       string `json:"from,omitempty"`
	DepartTime string `json:"depart_time,omitempty"`
	To         string `json:"to,omitempty"`
	ArriveTime string `json:"arrive_time,omitempty"`
	Price      int64  `json:"price,omitempty"`
	Quantity   int64  `json:"quantity,omitempty"`
	Raw        string `json:"raw"`
	Err        string `json:"error,omitempty"`
}

// Parsed reports whether the row decoded cleanly.
func (r OrderRow) Parsed() bool {
	return r.Err == ""
}

// DecodeFailure describes a reply that did not match its command's grammar.
type DecodeFailure struct {
	Reason string `json:"reason"`
}

// IsEmpty reports whether a list reply carried zero rows.
func (r Reply) IsEmpty() bool {
	switch r.Kind {
	case KindTicketOptions:
		return r.Tickets.Count == 0
	case KindOrders:
		return r.Orders.Count == 0
	default:
		return false
	}
}
