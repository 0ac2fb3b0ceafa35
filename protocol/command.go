package protocol

import (
	"strconv"
	"strings"

	"github.com/c360/ticketfront/pkg/timestamp"
)

// Param is one "-key value" pair of a command.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Predicate decides whether a parameter is sent. It receives the trimmed value.
type Predicate func(key, value, command string) bool

// NonEmpty keeps parameters with a non-empty value. It is the default predicate.
func NonEmpty(_, value, _ string) bool {
	return value != ""
}

// keepQueueFlag sends buy_ticket's -q flag even when blank and filters the rest like NonEmpty.
func keepQueueFlag(key, value, command string) bool {
	if key == "q" && command == CmdBuyTicket {
		return true
	}
	return value != ""
}

// PredicateFor returns the parameter filter a command's form uses.
func PredicateFor(name string) Predicate {
	if name == CmdBuyTicket {
		return keepQueueFlag
	}
	return NonEmpty
}

// Command is an encoded-ready backend command. Create it with NewCommand or an Encoder.
type Command struct {
	Sequence int64   `json:"sequence"`
	Name     string  `json:"name"`
	Args     []Param `json:"args,omitempty"`

	// Correlation is the name replies to this command are decoded under.
	Correlation string `json:"correlation"`
}

// NewCommand filters params through pred (NonEmpty when nil) and stamps seq.
// The exit_backend alias is sent as "exit" and correlated as exit_backend.
func NewCommand(seq int64, name string, params []Param, pred Predicate) Command {
	if pred == nil {
		pred = NonEmpty
	}

	cmd := Command{
		Sequence:    seq,
		Name:        WireName(name),
		Correlation: CorrelationName(name),
	}
	for _, p := range params {
		value := strings.TrimSpace(p.Value)
		if !pred(p.Key, value, cmd.Name) {
			continue
		}
		cmd.Args = append(cmd.Args, Param{Key: p.Key, Value: value})
	}
	return cmd
}

// String returns the wire form "[seq] name -k v ...".
func (c Command) String() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(strconv.FormatInt(c.Sequence, 10))
	b.WriteString("] ")
	b.WriteString(c.Name)
	for _, arg := range c.Args {
		b.WriteString(" -")
		b.WriteString(arg.Key)
		b.WriteByte(' ')
		b.WriteString(arg.Value)
	}
	return b.String()
}

// Encoder stamps commands from a sequencer.
type Encoder struct {
	seq *timestamp.Sequencer
}

// NewEncoder creates an encoder. A nil sequencer uses a fresh wall-clock one.
func NewEncoder(seq *timestamp.Sequencer) *Encoder {
	if seq == nil {
		seq = timestamp.NewSequencer()
	}
	return &Encoder{seq: seq}
}

// Command builds the next command for name.
func (e *Encoder) Command(name string, params []Param, pred Predicate) Command {
	return NewCommand(e.seq.Next(), name, params, pred)
}

// Encode returns the wire form of the next command for name.
func (e *Encoder) Encode(name string, params []Param, pred Predicate) string {
	return e.Command(name, params, pred).String()
}

// Encode formats a command using the process-wide sequencer.
func Encode(name string, params []Param, pred Predicate) string {
	return NewCommand(timestamp.Next(), name, params, pred).String()
}

// ParseWire reads the sequence and command name from a wire line. ok is false
// when the line does not start with "[<integer>] <name>".
func ParseWire(line string) (seq int64, name string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") {
		return 0, "", false
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return 0, "", false
	}
	seq, err := strconv.ParseInt(line[1:end], 10, 64)
	if err != nil {
		return 0, "", false
	}
	fields := strings.Fields(line[end+1:])
	if len(fields) == 0 {
		return 0, "", false
	}
	return seq, fields[0], true
}
