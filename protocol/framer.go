package protocol

import (
	"strconv"
	"strings"
)

// ExpectedLines reports how many stdout lines follow firstLine in the backend's
// reply to name. known is false when the grammar carries no length prefix
// (query_train) and the reader has to fall back to a quiet period instead.
//
// query_transfer answers either with a count line or, when a route exists,
// directly with its two legs; a non-numeric first line therefore means one
// more row.
func ExpectedLines(name, firstLine string) (extra int, known bool) {
	first := strings.TrimSpace(firstLine)
	if first == "-1" {
		return 0, true
	}

	switch CorrelationName(name) {
	case CmdQueryTrain:
		return 0, false
	case CmdQueryTicket, CmdQueryOrder:
		n, err := strconv.Atoi(first)
		if err != nil || n < 0 {
			return 0, true
		}
		return n, true
	case CmdQueryTransfer:
		n, err := strconv.Atoi(first)
		if err != nil {
			return 1, true
		}
		if n < 0 {
			return 0, true
		}
		return n, true
	default:
		return 0, true
	}
}
