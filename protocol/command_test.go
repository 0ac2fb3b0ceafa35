package protocol

import (
	"strings"
	"testing"

	"github.com/c360/ticketfront/errors"
	"github.com/c360/ticketfront/pkg/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommand_BuyTicketKeepsQueueFlag(t *testing.T) {
	params := []Param{{"q", "1"}, {"u", "alice"}}
	cmd := NewCommand(1717000000000, CmdBuyTicket, params, PredicateFor(CmdBuyTicket))
	assert.Equal(t, "[1717000000000] buy_ticket -q 1 -u alice", cmd.String())

	blank := NewCommand(5, CmdBuyTicket, []Param{{"u", "alice"}, {"q", " "}}, PredicateFor(CmdBuyTicket))
	assert.Equal(t, "[5] buy_ticket -u alice -q ", blank.String())
}

func TestNewCommand_DefaultPredicateDropsEmpty(t *testing.T) {
	params := []Param{
		{"u", "  alice "},
		{"p", ""},
		{"n", "   "},
		{"m", "alice@example.com"},
	}
	cmd := NewCommand(42, CmdAddUser, params, nil)

	assert.Equal(t, "[42] add_user -u alice -m alice@example.com", cmd.String())
	assert.Equal(t, CmdAddUser, cmd.Correlation)
	require.Len(t, cmd.Args, 2)
}

func TestNewCommand_ExitAlias(t *testing.T) {
	cmd := NewCommand(7, CmdExitBackend, nil, nil)
	assert.Equal(t, "[7] exit", cmd.String())
	assert.Equal(t, CmdExitBackend, cmd.Correlation)

	raw := NewCommand(8, CmdExit, nil, nil)
	assert.Equal(t, CmdExit, raw.Name)
	assert.Equal(t, CmdExitBackend, raw.Correlation)
}

func TestEncoder_SequenceIncreases(t *testing.T) {
	clock := func() int64 { return 1000 }
	enc := NewEncoder(timestamp.NewSequencerWithClock(clock))

	assert.Equal(t, "[1000] clean", enc.Encode(CmdClean, nil, nil))
	assert.Equal(t, "[1001] logout -u bob", enc.Encode(CmdLogout, []Param{{"u", "bob"}}, nil))
	assert.Equal(t, int64(1002), enc.Command(CmdClean, nil, nil).Sequence)
}

func TestEncode_DefaultSequencer(t *testing.T) {
	first := Encode(CmdLogin, []Param{{"u", "a"}, {"p", "b"}}, nil)
	second := Encode(CmdLogin, []Param{{"u", "a"}, {"p", "b"}}, nil)

	assert.True(t, strings.HasPrefix(first, "["))
	assert.True(t, strings.HasSuffix(first, "] login -u a -p b"))
	assert.NotEqual(t, first, second)
}

func TestKnownCommands(t *testing.T) {
	assert.Len(t, KnownCommands, 16)
	assert.True(t, IsKnown(CmdQueryTransfer))
	assert.True(t, IsKnown(CmdExit))
	assert.True(t, IsKnown(CmdExitBackend))
	assert.False(t, IsKnown("drop_table"))
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantName   string
		wantParams []Param
	}{
		{"bare command", "clean", "clean", nil},
		{"params in order", "login -u alice -p secret", "login", []Param{{"u", "alice"}, {"p", "secret"}}},
		{"quoted value", `query_ticket -s "Beijing North" -t Shanghai`, "query_ticket", []Param{{"s", "Beijing North"}, {"t", "Shanghai"}}},
		{"flag without value", "buy_ticket -u bob -q", "buy_ticket", []Param{{"u", "bob"}, {"q", ""}}},
		{"negative number is a value", "modify_profile -g -1", "modify_profile", []Param{{"g", "-1"}}},
		{"extra whitespace", "  logout   -u   bob  ", "logout", []Param{{"u", "bob"}}},
		{"quoted empty value", `add_user -n ""`, "add_user", []Param{{"n", ""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, params, err := ParseInput(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestParseInput_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":             "   ",
		"leading key":       "-u alice",
		"dangling value":    "login alice",
		"unterminated":      `login -u "alice`,
		"quoted command":    `"login" -u alice`,
		"value after value": "login -u alice bob",
	}
	for name, line := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseInput(line)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestParseWire(t *testing.T) {
	tests := []struct {
		line string
		seq  int64
		name string
		ok   bool
	}{
		{"[1717000000000] query_profile -c root -u alice", 1717000000000, "query_profile", true},
		{"  [9] exit  ", 9, "exit", true},
		{"[12]clean", 12, "clean", true},
		{"[x] clean", 0, "", false},
		{"[12]", 0, "", false},
		{"clean", 0, "", false},
		{"[12 clean", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			seq, name, ok := ParseWire(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.seq, seq)
			assert.Equal(t, tt.name, name)
		})
	}

	cmd := NewCommand(42, CmdQueryOrder, []Param{{"u", "alice"}}, nil)
	seq, name, ok := ParseWire(cmd.String())
	require.True(t, ok)
	assert.Equal(t, int64(42), seq)
	assert.Equal(t, CmdQueryOrder, name)
}
