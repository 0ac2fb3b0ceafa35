package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/c360/ticketfront/protocol"
)

// Summary returns the one-line result text for reply and the outcome to
// style it with.
func Summary(reply protocol.Reply) (protocol.Outcome, string) {
	switch reply.Kind {
	case protocol.KindScalar:
		return reply.Outcome, scalarSummary(reply)
	case protocol.KindProfile:
		p := reply.Profile
		return reply.Outcome, fmt.Sprintf("user %s (%s), mail %s, privilege %s", p.Username, p.RealName, p.Email, p.Privilege)
	case protocol.KindTrainSchedule:
		return reply.Outcome, fmt.Sprintf("train %s (type %s), %d stops", reply.Train.TrainID, reply.Train.Type, len(reply.Train.Stops))
	case protocol.KindTicketOptions:
		return reply.Outcome, ticketSummary(reply)
	case protocol.KindOrders:
		if reply.IsEmpty() {
			return reply.Outcome, "order query succeeded: this user has no orders (0)"
		}
		if reply.Orders.Mismatch != "" {
			return reply.Outcome, fmt.Sprintf("found %d orders (%s)", reply.Orders.Count, reply.Orders.Mismatch)
		}
		return reply.Outcome, fmt.Sprintf("found %d orders", reply.Orders.Count)
	case protocol.KindDecodeFailure:
		return protocol.OutcomeFailure, failureSummary(reply)
	default:
		return protocol.OutcomeInfo, "server response: " + oneLine(reply.Raw)
	}
}

func scalarSummary(reply protocol.Reply) string {
	switch reply.Scalar.Code {
	case protocol.CodeFailure:
		return "operation failed: -1"
	case protocol.CodeQueued:
		return "purchase queued: queue (added to the standby list)"
	case protocol.CodeBye:
		return "backend exited: bye"
	case protocol.CodeLiteral:
		return "purchase succeeded, total price: " + strconv.FormatInt(reply.Scalar.Value, 10)
	default:
		return "operation succeeded: 0"
	}
}

func ticketSummary(reply protocol.Reply) string {
	transfer := reply.Command == protocol.CmdQueryTransfer
	switch {
	case reply.IsEmpty() && transfer:
		return "transfer query failed: no matching trains (0)"
	case reply.IsEmpty():
		return "ticket query succeeded: no matching trains (0)"
	case transfer:
		return fmt.Sprintf("found %d transfer legs", reply.Tickets.Count)
	default:
		return fmt.Sprintf("found %d trains with tickets", reply.Tickets.Count)
	}
}

func failureSummary(reply protocol.Reply) string {
	var prefix string
	switch reply.Command {
	case protocol.CmdQueryTrain:
		prefix = "query failed or no data"
	case protocol.CmdQueryTicket, protocol.CmdQueryTransfer, protocol.CmdQueryOrder:
		prefix = "unexpected format or query failed"
	case protocol.CmdBuyTicket:
		prefix = "purchase failed or unexpected result"
	default:
		prefix = "unexpected format"
	}
	return fmt.Sprintf("%s: %s (%s)", prefix, oneLine(reply.Raw), reply.Failure.Reason)
}

// Detail returns table headers and rows for replies that carry records, or
// nil headers when there is nothing to tabulate.
func Detail(reply protocol.Reply) (headers []string, rows [][]string) {
	switch reply.Kind {
	case protocol.KindProfile:
		p := reply.Profile
		return []string{"Field", "Value"}, [][]string{
			{"username", p.Username},
			{"name", p.RealName},
			{"mail", p.Email},
			{"privilege", p.Privilege},
		}
	case protocol.KindTrainSchedule:
		headers = []string{"Station", "Arrival", "Departure", "Price", "Seats"}
		for _, s := range reply.Train.Stops {
			rows = append(rows, []string{s.Station, s.Arrival, s.Departure, itoa(s.CumulativePrice), s.SeatsToNext})
		}
		return headers, rows
	case protocol.KindTicketOptions:
		if reply.IsEmpty() {
			return nil, nil
		}
		headers = []string{"Train", "From", "Departs", "To", "Arrives", "Price", "Seats"}
		for _, r := range reply.Tickets.Rows {
			rows = append(rows, []string{r.TrainID, r.From, r.DepartTime, r.To, r.ArriveTime, itoa(r.Price), itoa(r.Seats)})
		}
		return headers, rows
	case protocol.KindOrders:
		if reply.IsEmpty() {
			return nil, nil
		}
		headers = []string{"Status", "Train", "From", "Departs", "To", "Arrives", "Price", "Quantity"}
		for _, r := range reply.Orders.Rows {
			if !r.Parsed() {
				rows = append(rows, []string{"unparsed", r.Raw, "", "", "", "", "", ""})
				continue
			}
			rows = append(rows, []string{r.Status, r.TrainID, r.From, r.DepartTime, r.To, r.ArriveTime, itoa(r.Price), itoa(r.Quantity)})
		}
		return headers, rows
	default:
		return nil, nil
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

var lineJoiner = strings.NewReplacer("\r", "", "\n", " | ")

// oneLine collapses a multi-line raw reply for the summary line.
func oneLine(s string) string {
	return lineJoiner.Replace(strings.TrimSpace(s))
}
