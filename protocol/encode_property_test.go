//go:build property

package protocol_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/c360/ticketfront/protocol"
)

// TestEncodeKeepsPrefixAndOrder checks the wire form of arbitrary commands.
// Property: output starts with "[seq] name" and kept params appear in input order.
func TestEncodeKeepsPrefixAndOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("prefix and param order are preserved", prop.ForAll(
		func(seq int64, values []string) bool {
			params := make([]protocol.Param, len(values))
			for i, v := range values {
				params[i] = protocol.Param{Key: "k" + strconv.Itoa(i), Value: v}
			}

			wire := protocol.NewCommand(seq, protocol.CmdQueryTicket, params, nil).String()
			prefix := "[" + strconv.FormatInt(seq, 10) + "] " + protocol.CmdQueryTicket
			if !strings.HasPrefix(wire, prefix) {
				return false
			}

			var want strings.Builder
			want.WriteString(prefix)
			for _, p := range params {
				if p.Value == "" {
					continue
				}
				want.WriteString(" -" + p.Key + " " + p.Value)
			}
			return wire == want.String()
		},
		gen.Int64Range(0, 1<<42),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("decode never panics and always sets a kind", prop.ForAll(
		func(name, raw string) bool {
			reply := protocol.Decode(name, raw)
			return reply.Kind != "" && reply.Outcome != ""
		},
		gen.OneConstOf(
			protocol.CmdQueryProfile, protocol.CmdQueryTrain, protocol.CmdQueryTicket,
			protocol.CmdQueryTransfer, protocol.CmdBuyTicket, protocol.CmdQueryOrder, "other",
		),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
