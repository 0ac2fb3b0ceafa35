package protocol

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	stopFields   = 8
	ticketFields = 10
	orderFields  = 10
)

var orderLine = regexp.MustCompile(`^\[(success|pending|refunded)\]\s+(.*)$`)

// Decode classifies raw under the grammar of commandName. It never fails:
// replies that do not match become KindDecodeFailure.
func Decode(commandName, raw string) Reply {
	trimmed := strings.TrimSpace(raw)

	switch {
	case trimmed == "-1":
		return scalar(commandName, raw, CodeFailure, 0)
	case trimmed == "0" && !countPrefixed(commandName):
		return scalar(commandName, raw, CodeSuccess, 0)
	case commandName == CmdBuyTicket && trimmed == "queue":
		return scalar(commandName, raw, CodeQueued, 0)
	case commandName == CmdExitBackend && trimmed == "bye":
		return scalar(commandName, raw, CodeBye, 0)
	}

	lines := splitLines(raw)

	switch commandName {
	case CmdQueryProfile, CmdModifyProfile:
		return decodeProfile(commandName, raw, lines)
	case CmdQueryTrain:
		return decodeTrain(commandName, raw, lines)
	case CmdQueryTicket, CmdQueryTransfer:
		return decodeTickets(commandName, raw, lines)
	case CmdBuyTicket:
		return decodePrice(commandName, raw, trimmed)
	case CmdQueryOrder:
		return decodeOrders(commandName, raw, lines)
	default:
		return Reply{Command: commandName, Kind: KindOpaque, Outcome: OutcomeInfo, Raw: raw}
	}
}

// countPrefixed reports whether a bare "0" is an empty list for name rather
// than the generic success code.
func countPrefixed(name string) bool {
	switch name {
	case CmdQueryTicket, CmdQueryTransfer, CmdQueryOrder:
		return true
	default:
		return false
	}
}

func splitLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func scalar(command, raw string, code Code, value int64) Reply {
	outcome := OutcomeSuccess
	switch code {
	case CodeFailure:
		outcome = OutcomeFailure
	case CodeQueued:
		outcome = OutcomeInfo
	}
	return Reply{
		Command: command,
		Kind:    KindScalar,
		Outcome: outcome,
		Raw:     raw,
		Scalar:  &Scalar{Code: code, Value: value},
	}
}

func failure(command, raw, format string, args ...any) Reply {
	return Reply{
		Command: command,
		Kind:    KindDecodeFailure,
		Outcome: OutcomeFailure,
		Raw:     raw,
		Failure: &DecodeFailure{Reason: fmt.Sprintf(format, args...)},
	}
}

func decodeProfile(command, raw string, lines []string) Reply {
	fields := strings.Fields(strings.Join(lines, " "))
	if len(fields) != 4 {
		return failure(command, raw, "unexpected format: profile has %d fields, want 4", len(fields))
	}
	return Reply{
		Command: command,
		Kind:    KindProfile,
		Outcome: OutcomeSuccess,
		Raw:     raw,
		Profile: &Profile{
			Username:  fields[0],
			RealName:  fields[1],
			Email:     fields[2],
			Privilege: fields[3],
		},
	}
}

func decodeTrain(command, raw string, lines []string) Reply {
	if len(lines) < 2 {
		return failure(command, raw, "unexpected format: train reply has %d lines, want at least 2", len(lines))
	}

	header := strings.Fields(lines[0])
	if len(header) != 2 {
		return failure(command, raw, "unexpected format: train header has %d fields, want 2", len(header))
	}

	schedule := &TrainSchedule{TrainID: header[0], Type: header[1]}
	for i, line := range lines[1:] {
		f := strings.Fields(line)
		if len(f) != stopFields {
			return failure(command, raw, "unexpected format: stop %d has %d fields, want %d", i+1, len(f), stopFields)
		}
		price, err := parseCount(f[6])
		if err != nil {
			return failure(command, raw, "stop %d: price: %v", i+1, err)
		}
		schedule.Stops = append(schedule.Stops, Stop{
			Station:         f[0],
			Arrival:         f[1] + " " + f[2],
			Departure:       f[4] + " " + f[5],
			CumulativePrice: price,
			SeatsToNext:     f[7],
		})
	}

	return Reply{Command: command, Kind: KindTrainSchedule, Outcome: OutcomeSuccess, Raw: raw, Train: schedule}
}

func decodeTickets(command, raw string, lines []string) Reply {
	if len(lines) == 0 {
		return failure(command, raw, "unexpected format: empty reply")
	}
	n, err := parseCount(lines[0])
	if err != nil {
		return failure(command, raw, "count: %v", err)
	}

	options := &TicketOptions{Count: int(n)}
	if n == 0 {
		outcome := OutcomeInfo
		if command == CmdQueryTransfer {
			outcome = OutcomeFailure
		}
		return Reply{Command: command, Kind: KindTicketOptions, Outcome: outcome, Raw: raw, Tickets: options}
	}

	rows := lines[1:]
	if int64(len(rows)) < n {
		return failure(command, raw, "unexpected format: %d rows announced, %d received", n, len(rows))
	}
	for i := 0; i < int(n); i++ {
		row, err := parseTicketRow(strings.Fields(rows[i]))
		if err != nil {
			return failure(command, raw, "row %d: %v", i+1, err)
		}
		options.Rows = append(options.Rows, row)
	}

	return Reply{Command: command, Kind: KindTicketOptions, Outcome: OutcomeSuccess, Raw: raw, Tickets: options}
}

func parseTicketRow(f []string) (TicketRow, error) {
	if len(f) != ticketFields {
		return TicketRow{}, fmt.Errorf("%d fields, want %d", len(f), ticketFields)
	}
	price, err := parseCount(f[8])
	if err != nil {
		return TicketRow{}, fmt.Errorf("price: %w", err)
	}
	seats, err := parseCount(f[9])
	if err != nil {
		return TicketRow{}, fmt.Errorf("seats: %w", err)
	}
	return TicketRow{
		TrainID:    f[0],
		From:       f[1],
		DepartTime: f[2] + " " + f[3],
		To:         f[5],
		ArriveTime: f[6] + " " + f[7],
		Price:      price,
		Seats:      seats,
	}, nil
}

func decodePrice(command, raw, trimmed string) Reply {
	price, err := parseCount(trimmed)
	if err != nil {
		return failure(command, raw, "total price: %v", err)
	}
	return scalar(command, raw, CodeLiteral, price)
}

func decodeOrders(command, raw string, lines []string) Reply {
	if len(lines) == 0 {
		return failure(command, raw, "unexpected format: empty reply")
	}
	n, err := parseCount(lines[0])
	if err != nil {
		return failure(command, raw, "count: %v", err)
	}

	orders := &Orders{Count: int(n)}
	if n == 0 {
		return Reply{Command: command, Kind: KindOrders, Outcome: OutcomeInfo, Raw: raw, Orders: orders}
	}

	for _, line := range lines[1:] {
		orders.Rows = append(orders.Rows, parseOrderRow(line))
	}
	if len(orders.Rows) != orders.Count {
		orders.Mismatch = fmt.Sprintf("%d rows announced, %d received", n, len(orders.Rows))
	}

	return Reply{Command: command, Kind: KindOrders, Outcome: OutcomeSuccess, Raw: raw, Orders: orders}
}

func parseOrderRow(line string) OrderRow {
	m := orderLine.FindStringSubmatch(line)
	if m == nil {
		return OrderRow{Raw: line, Err: "missing [status] prefix"}
	}

	f := strings.Fields(m[2])
	if len(f) != orderFields {
		return OrderRow{Raw: line, Err: fmt.Sprintf("%d fields, want %d", len(f), orderFields)}
	}
	price, err := parseCount(f[8])
	if err != nil {
		return OrderRow{Raw: line, Err: "price: " + err.Error()}
	}
	quantity, err := parseCount(f[9])
	if err != nil {
		return OrderRow{Raw: line, Err: "quantity: " + err.Error()}
	}

	return OrderRow{
		Status:     m[1],
		TrainID:    f[0],
		From:       f[1],
		DepartTime: f[2] + " " + f[3],
		To:         f[5],
		ArriveTime: f[6] + " " + f[7],
		Price:      price,
		Quantity:   quantity,
		Raw:        line,
	}
}

// parseCount parses a non-negative base-10 integer.
func parseCount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%d is negative", n)
	}
	return n, nil
}
