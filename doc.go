// Package ticketfront is a front end for a line-oriented train ticket backend
// reached over a websocket.
//
// # Architecture
//
// The protocol core is split into small packages, leaves first:
//
//	pkg/timestamp   strictly increasing command stamps
//	protocol        command encoding, console input parsing, reply decoding
//	client          the websocket connection manager and its correlation slot
//	render          presentation sinks: terminal, JSON lines, NATS
//	console         the bubbletea console built on client and render
//	bridge          a websocket server that runs one backend process per session
//	cmd/ticketfront the cobra command tying it together
//
// Supporting packages carry the ambient stack: errors (classified errors),
// config (layered JSON/YAML loading with schema checks), metric (prometheus
// registry and server), health (component status and the /health endpoint),
// natsclient (NATS and JetStream connection) and pkg/retry.
//
// # Wire Protocol
//
// A command is one text message:
//
//	[1717228800000] query_ticket -s Beijing -t Shanghai -d 06-01
//
// The stamp comes from a sequencer that never repeats or goes backwards.
// Replies carry no stamp; each reply is matched with the last command sent,
// so the client keeps strict request/reply alternation and never pipelines.
//
//	enc := protocol.NewEncoder(nil)
//	m := client.NewManager(client.DefaultConfig(), func(raw, name string) {
//	    reply := protocol.Decode(name, raw)
//	    _ = render.NewTerminal(os.Stdout).Render("example", reply)
//	})
//	go m.Run(ctx)
//	...
//	m.Send(enc.Command(protocol.CmdLogin, params, protocol.PredicateFor(protocol.CmdLogin)))
//
// Decode never fails: replies that do not match the command's grammar come
// back as a decode failure reply carrying the raw text and a reason.
//
// # Binary
//
//	ticketfront console                    interactive console
//	ticketfront send login -u alice -p pw  one command, exit status 1 on failure
//	ticketfront bridge -- ./ticket-system  serve a backend on :8765
//	ticketfront config                     print the effective configuration
package ticketfront
