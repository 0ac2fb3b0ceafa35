package bridge

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/c360/ticketfront/protocol"
)

const fakeBackendEnv = "TICKETFRONT_FAKE_BACKEND"

// TestMain turns the test binary into a fake backend when fakeBackendEnv is set.
func TestMain(m *testing.M) {
	if os.Getenv(fakeBackendEnv) == "1" {
		runFakeBackend()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// runFakeBackend answers wire commands on stdin the way the ticket backend
// would for a small fixed data set.
func runFakeBackend() {
	in := bufio.NewScanner(os.Stdin)
	out := bufio.NewWriter(os.Stdout)
	reply := func(lines ...string) {
		for _, l := range lines {
			fmt.Fprintln(out, l)
		}
		out.Flush()
	}

	for in.Scan() {
		_, name, ok := protocol.ParseWire(in.Text())
		if !ok {
			reply("-1")
			continue
		}
		switch name {
		case protocol.CmdLogin, protocol.CmdClean:
			reply("0")
		case protocol.CmdQueryTicket:
			reply("2",
				"G1 Beijing 06-01 08:00 -> Shanghai 06-01 12:00 500 20",
				"G3 Beijing 06-01 09:00 -> Shanghai 06-01 13:30 480 5")
		case protocol.CmdQueryTransfer:
			reply("G1 Beijing 06-01 08:00 -> Nanjing 06-01 10:00 300 20",
				"D5 Nanjing 06-01 11:00 -> Shanghai 06-01 12:30 150 8")
		case protocol.CmdQueryTrain:
			reply("G1 G",
				"Beijing xx-xx xx:xx -> 06-01 08:00 0 20")
			time.Sleep(20 * time.Millisecond)
			reply("Shanghai 06-01 12:00 -> xx-xx xx:xx 500 x")
		case protocol.CmdQueryOrder:
			reply("1", "[pending] G1 Beijing 06-01 08:00 -> Shanghai 06-01 12:00 500 2")
		case "slow":
			time.Sleep(2 * time.Second)
			reply("0")
		case "exit":
			reply("bye")
			return
		default:
			reply("-1")
		}
		if strings.Contains(in.Text(), "-crash") {
			os.Exit(3)
		}
	}
}

// fakeBackend returns a backend config that re-executes the test binary as
// the fake backend.
func fakeBackend(t *testing.T) BackendConfig {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("locate test binary: %v", err)
	}
	return BackendConfig{
		Command: exe,
		Args:    []string{"-test.run=^$"},
		Env:     []string{fakeBackendEnv + "=1"},
	}
}
