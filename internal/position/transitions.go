package position

// Status values and the explicit transition tables both state machines go
// through. Any transition not listed here is rejected, regardless of which
// code path asks for it.

const (
	ReqStatusDraft           = "draft"
	ReqStatusPendingApproval = "pending_approval"
	ReqStatusApproved        = "approved"
	ReqStatusExecuted        = "executed"
	ReqStatusRejected        = "rejected"
	ReqStatusCancelled       = "cancelled"
)

const (
	ExecStatusOpen            = "open"
	ExecStatusPartiallyClosed = "partially_closed"
	ExecStatusClosed          = "closed"
	// ExecStatusRolled marks an execution fully consumed by a roll. The
	// engine emits "closed" for a full roll (the HedgeRoll row carries the
	// linkage); "rolled" is accepted on read as a terminal alias.
	ExecStatusRolled = "rolled"
)

const (
	SourceManual       = "manual"
	SourceDealMatching = "deal_matching"
	SourceRoll         = "roll"
	SourcePriceFix     = "price_fix"
)

const (
	DirectionBuy  = "BUY"
	DirectionSell = "SELL"
)

const (
	LinkLevelOrder   = "ORDER"
	LinkLevelTicket  = "TICKET"
	LinkLevelBLOrder = "BL_ORDER"
)

const (
	AllocationInitialHedge = "INITIAL_HEDGE"
	AllocationPriceFix     = "PRICE_FIX"
)

// MinRejectReasonLen is the minimum length of a rejection reason.
const MinRejectReasonLen = 10

var requestTransitions = map[string][]string{
	ReqStatusDraft:           {ReqStatusPendingApproval, ReqStatusApproved, ReqStatusRejected, ReqStatusCancelled},
	ReqStatusPendingApproval: {ReqStatusApproved, ReqStatusRejected, ReqStatusCancelled},
	ReqStatusApproved:        {ReqStatusExecuted, ReqStatusRejected, ReqStatusCancelled},
	ReqStatusExecuted:        {},
	ReqStatusRejected:        {},
	ReqStatusCancelled:       {},
}

var executionTransitions = map[string][]string{
	ExecStatusOpen:            {ExecStatusPartiallyClosed, ExecStatusClosed, ExecStatusRolled},
	ExecStatusPartiallyClosed: {ExecStatusPartiallyClosed, ExecStatusClosed, ExecStatusRolled},
	ExecStatusClosed:          {},
	ExecStatusRolled:          {},
}

func CanTransitionRequest(from, to string) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func CanTransitionExecution(from, to string) bool {
	for _, next := range executionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequestTerminal reports whether a request status admits no further
// transitions.
func RequestTerminal(status string) bool {
	return len(requestTransitions[status]) == 0
}

func ValidDirection(d string) bool {
	return d == DirectionBuy || d == DirectionSell
}

// OppositeDirection returns the unwind side for a given hedge direction.
func OppositeDirection(d string) string {
	if d == DirectionBuy {
		return DirectionSell
	}
	return DirectionBuy
}
