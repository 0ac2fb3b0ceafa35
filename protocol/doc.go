// Package protocol implements the ticket backend's text protocol.
//
// # Outbound
//
// Commands travel as a single line:
//
//	[<sequence>] <name> -<key> <value> -<key> <value> ...
//
// The sequence comes from a timestamp.Sequencer and is strictly increasing.
// Parameters keep their input order; values are trimmed and parameters whose
// value fails the command's predicate (by default: empty values) are dropped.
//
// # Inbound
//
// Replies carry no sequence number. They are matched to the last command sent
// (see client.Manager) and decoded by Decode according to that command's
// grammar:
//
//	-1                       any command: failure
//	0                        any command: success
//	queue                    buy_ticket: queued for standby
//	bye                      exit_backend: acknowledged shutdown
//	<user> <name> <mail> <p> query_profile, modify_profile
//	<id> <type>\n<stops...>  query_train
//	<n>\n<rows...>           query_ticket, query_transfer, query_order
//	<price>                  buy_ticket
//
// Anything else is returned verbatim as an opaque reply. Decode never fails:
// malformed replies become KindDecodeFailure values carrying the raw text and
// a description of the mismatch.
package protocol
