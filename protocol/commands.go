package protocol

// Command names understood by the backend.
const (
	CmdAddUser       = "add_user"
	CmdLogin         = "login"
	CmdLogout        = "logout"
	CmdQueryProfile  = "query_profile"
	CmdModifyProfile = "modify_profile"
	CmdAddTrain      = "add_train"
	CmdDeleteTrain   = "delete_train"
	CmdReleaseTrain  = "release_train"
	CmdQueryTrain    = "query_train"
	CmdQueryTicket   = "query_ticket"
	CmdQueryTransfer = "query_transfer"
	CmdBuyTicket     = "buy_ticket"
	CmdQueryOrder    = "query_order"
	CmdRefundTicket  = "refund_ticket"
	CmdClean         = "clean"
	CmdExit          = "exit"

	// CmdExitBackend is the correlation name used for CmdExit. The backend
	// only knows "exit"; replies are decoded under this name so that "bye"
	// is recognised as an acknowledged shutdown.
	CmdExitBackend = "exit_backend"
)

// KnownCommands lists every command the console offers, in menu order.
var KnownCommands = []string{
	CmdAddUser,
	CmdLogin,
	CmdLogout,
	CmdQueryProfile,
	CmdModifyProfile,
	CmdAddTrain,
	CmdDeleteTrain,
	CmdReleaseTrain,
	CmdQueryTrain,
	CmdQueryTicket,
	CmdQueryTransfer,
	CmdBuyTicket,
	CmdQueryOrder,
	CmdRefundTicket,
	CmdClean,
	CmdExitBackend,
}

// IsKnown reports whether name is one of KnownCommands or the raw exit command.
func IsKnown(name string) bool {
	if name == CmdExit {
		return true
	}
	for _, known := range KnownCommands {
		if known == name {
			return true
		}
	}
	return false
}

// WireName maps a correlation name to the name sent on the wire.
func WireName(name string) string {
	if name == CmdExitBackend {
		return CmdExit
	}
	return name
}

// CorrelationName maps a wire name to the name replies are decoded under.
func CorrelationName(name string) string {
	if name == CmdExit {
		return CmdExitBackend
	}
	return name
}
