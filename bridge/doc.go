// Package bridge exposes a line-oriented backend process over websocket.
//
// Every websocket session gets its own backend process, started from the
// configured command with its stdin and stdout piped. Each inbound text
// message is written to stdin followed by a newline; the reply is the next
// stdout line plus the continuation lines its command's grammar announces
// (see protocol.ExpectedLines). For grammars without a count line the bridge
// collects lines until none arrive for ReplyIdle. The joined lines are sent
// back as one websocket message.
//
// When the backend exits (for example after "exit") the websocket is closed
// so that clients see a disconnect and reconnect to a fresh process.
//
// Commands beyond the per-session rate limit are answered immediately with
// "error: rate limited" and never reach the backend.
package bridge
