package position

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"metalops/internal/models"
)

// The Position Engine. Each operation is a pure function from currently
// loaded records to the next state of every record the operation touches,
// or a typed rejection. The engine is the single writer of open quantity,
// execution status and closed price/closed-at; it never talks to storage.
//
// New executions produced here have ID 0 until persisted; the orchestrator
// back-fills references (link.ExecutionID, roll.OpenExecutionID) after the
// insert, inside the same transaction.

type OpenInput struct {
	Price        decimal.Decimal
	Currency     string
	TradeDate    time.Time
	MaturityDate time.Time
	Broker       string
	ContractRef  string
}

type OpenResult struct {
	Execution models.HedgeExecution
	Link      *models.HedgeLink
	Request   models.HedgeRequest
}

// Open fulfils an approved request with a brand-new execution covering the
// request's full quantity.
func Open(req models.HedgeRequest, in OpenInput, now time.Time) (OpenResult, error) {
	if !CanTransitionRequest(req.Status, ReqStatusExecuted) {
		return OpenResult{}, Validationf("request %d is %s, must be approved before execution", req.ID, req.Status)
	}
	if !req.QuantityMT.IsPositive() {
		return OpenResult{}, Validationf("request quantity must be positive, got %s", req.QuantityMT)
	}
	if !in.Price.IsPositive() {
		return OpenResult{}, Validationf("executed price must be positive, got %s", in.Price)
	}
	if in.MaturityDate.IsZero() {
		return OpenResult{}, Validationf("maturity date is mandatory")
	}

	exec := models.HedgeExecution{
		Metal:          req.Metal,
		Direction:      req.Direction,
		QuantityMT:     req.QuantityMT,
		OpenQuantityMT: req.QuantityMT,
		ExecutedPrice:  in.Price,
		Currency:       currencyOrDefault(in.Currency),
		TradeDate:      tradeDateOrNow(in.TradeDate, now),
		MaturityDate:   in.MaturityDate,
		Broker:         in.Broker,
		ContractRef:    in.ContractRef,
		Status:         ExecStatusOpen,
		HedgeRequestID: &req.ID,
	}

	var link *models.HedgeLink
	if level, id, ok := anchorFromRequest(req); ok {
		price := in.Price
		link = &models.HedgeLink{
			LinkLevel:      level,
			LinkID:         id,
			QuantityMT:     req.QuantityMT,
			Side:           req.Direction,
			Metal:          req.Metal,
			Direction:      req.Direction,
			AllocationType: AllocationInitialHedge,
			ExecPrice:      &price,
		}
	}

	req.Status = ReqStatusExecuted
	return OpenResult{Execution: exec, Link: link, Request: req}, nil
}

type RollInput struct {
	Quantity       decimal.Decimal
	ClosePrice     decimal.Decimal
	NewPrice       decimal.Decimal
	NewMaturity    time.Time
	NewBroker      string
	NewContractRef string
	RollCost       *decimal.Decimal
	CostCurrency   string
	Reason         string
}

type RollResult struct {
	Original models.HedgeExecution
	NewLeg   models.HedgeExecution
	Roll     models.HedgeRoll
	Request  *models.HedgeRequest
}

// Roll moves quantity from an open execution into a new contract month.
// Rolling the full open quantity closes the original and opens the new leg
// in the same logical transaction; there is no state where both are open.
func Roll(req *models.HedgeRequest, original models.HedgeExecution, in RollInput, now time.Time) (RollResult, error) {
	if !in.NewPrice.IsPositive() {
		return RollResult{}, Validationf("new leg price must be positive, got %s", in.NewPrice)
	}
	if in.NewMaturity.IsZero() {
		return RollResult{}, Validationf("new leg maturity date is mandatory")
	}
	if !in.ClosePrice.IsPositive() {
		return RollResult{}, Validationf("close price must be positive, got %s", in.ClosePrice)
	}
	if err := applyClose(&original, in.Quantity, in.ClosePrice, now); err != nil {
		return RollResult{}, err
	}
	appendAudit(&original, "rolled "+in.Quantity.String()+" MT at "+in.ClosePrice.String(), now)

	newLeg := models.HedgeExecution{
		Metal:          original.Metal,
		Direction:      original.Direction,
		QuantityMT:     in.Quantity,
		OpenQuantityMT: in.Quantity,
		ExecutedPrice:  in.NewPrice,
		Currency:       original.Currency,
		TradeDate:      now,
		MaturityDate:   in.NewMaturity,
		Broker:         brokerOrInherit(in.NewBroker, original.Broker),
		ContractRef:    in.NewContractRef,
		Status:         ExecStatusOpen,
	}

	roll := models.HedgeRoll{
		CloseExecutionID: original.ID,
		RolledQtyMT:      in.Quantity,
		RollDate:         now,
		RollCost:         in.RollCost,
		CostCurrency:     in.CostCurrency,
		Reason:           in.Reason,
	}

	if req != nil {
		if !CanTransitionRequest(req.Status, ReqStatusExecuted) {
			return RollResult{}, Validationf("request %d is %s, must be approved before execution", req.ID, req.Status)
		}
		req.Status = ReqStatusExecuted
		newLeg.HedgeRequestID = &req.ID
	}

	return RollResult{Original: original, NewLeg: newLeg, Roll: roll, Request: req}, nil
}

type FixingCloseInput struct {
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	CloseDate time.Time
}

type FixingCloseResult struct {
	Original models.HedgeExecution
	Link     *models.HedgeLink
	Request  *models.HedgeRequest
}

// FixingClose reduces or fully closes an open execution to match a physical
// pricing fix, with no replacement leg. allocated is the quantity already
// allocated to links of the original execution; a fix that would push the
// total past the traded quantity is rejected.
func FixingClose(req *models.HedgeRequest, original models.HedgeExecution, allocated decimal.Decimal, in FixingCloseInput, now time.Time) (FixingCloseResult, error) {
	if !in.Price.IsPositive() {
		return FixingCloseResult{}, Validationf("fixing price must be positive, got %s", in.Price)
	}
	closeAt := in.CloseDate
	if closeAt.IsZero() {
		closeAt = now
	}
	if err := applyClose(&original, in.Quantity, in.Price, closeAt); err != nil {
		return FixingCloseResult{}, err
	}
	appendAudit(&original, "fixing close "+in.Quantity.String()+" MT at "+in.Price.String(), now)

	var link *models.HedgeLink
	if req != nil {
		if level, id, ok := anchorFromRequest(*req); ok {
			if allocated.Add(in.Quantity).GreaterThan(original.QuantityMT) {
				return FixingCloseResult{}, Validationf(
					"link allocation %s MT would exceed execution %d traded quantity %s MT",
					allocated.Add(in.Quantity), original.ID, original.QuantityMT)
			}
			price := in.Price
			link = &models.HedgeLink{
				ExecutionID:    original.ID,
				LinkLevel:      level,
				LinkID:         id,
				QuantityMT:     in.Quantity,
				Side:           OppositeDirection(original.Direction),
				Metal:          original.Metal,
				Direction:      original.Direction,
				AllocationType: AllocationPriceFix,
				FixingPrice:    &price,
			}
		}
		if !CanTransitionRequest(req.Status, ReqStatusExecuted) {
			return FixingCloseResult{}, Validationf("request %d is %s, must be approved before execution", req.ID, req.Status)
		}
		req.Status = ReqStatusExecuted
	}

	return FixingCloseResult{Original: original, Link: link, Request: req}, nil
}

// AnchorLineage is the lineage of the original execution a price-fix
// request targets: its links and its originating request, used to inherit a
// physical anchor when the request itself carries none.
type AnchorLineage struct {
	OriginalLinks   []models.HedgeLink
	OriginalRequest *models.HedgeRequest
}

type PriceFixInput struct {
	Price        decimal.Decimal
	Currency     string
	TradeDate    time.Time
	MaturityDate time.Time
	Broker       string
	ContractRef  string
}

type PriceFixResult struct {
	Execution models.HedgeExecution
	Link      *models.HedgeLink
	Original  *models.HedgeExecution
	Request   models.HedgeRequest
}

// PriceFix executes a request that fixes price on an opposite-direction
// hedge tied to an existing execution. The physical anchor is the request's
// own when present, otherwise inherited from the original execution's links
// or, failing that, its originating request; first match wins, preferring
// BL order over order over ticket.
func PriceFix(req models.HedgeRequest, original *models.HedgeExecution, lineage AnchorLineage, in PriceFixInput, now time.Time) (PriceFixResult, error) {
	if !CanTransitionRequest(req.Status, ReqStatusExecuted) {
		return PriceFixResult{}, Validationf("request %d is %s, must be approved before execution", req.ID, req.Status)
	}
	if !in.Price.IsPositive() {
		return PriceFixResult{}, Validationf("executed price must be positive, got %s", in.Price)
	}
	if in.MaturityDate.IsZero() {
		return PriceFixResult{}, Validationf("maturity date is mandatory")
	}
	if !req.QuantityMT.IsPositive() {
		return PriceFixResult{}, Validationf("request quantity must be positive, got %s", req.QuantityMT)
	}

	exec := models.HedgeExecution{
		Metal:          req.Metal,
		Direction:      req.Direction,
		QuantityMT:     req.QuantityMT,
		OpenQuantityMT: req.QuantityMT,
		ExecutedPrice:  in.Price,
		Currency:       currencyOrDefault(in.Currency),
		TradeDate:      tradeDateOrNow(in.TradeDate, now),
		MaturityDate:   in.MaturityDate,
		Broker:         in.Broker,
		ContractRef:    in.ContractRef,
		Status:         ExecStatusOpen,
		HedgeRequestID: &req.ID,
	}

	var link *models.HedgeLink
	if level, id, ok := resolveAnchor(req, lineage); ok {
		price := in.Price
		link = &models.HedgeLink{
			LinkLevel:      level,
			LinkID:         id,
			QuantityMT:     req.QuantityMT,
			Side:           req.Direction,
			Metal:          req.Metal,
			Direction:      req.Direction,
			AllocationType: AllocationPriceFix,
			FixingPrice:    &price,
		}
	}

	if original != nil {
		if err := applyClose(original, req.QuantityMT, in.Price, now); err != nil {
			return PriceFixResult{}, err
		}
		appendAudit(original, "price fix "+req.QuantityMT.String()+" MT at "+in.Price.String(), now)
	}

	req.Status = ReqStatusExecuted
	return PriceFixResult{Execution: exec, Link: link, Original: original, Request: req}, nil
}

// applyClose decrements open quantity by q and moves status through the
// transition table. Open quantity never increases and never goes negative.
func applyClose(exec *models.HedgeExecution, q, closePrice decimal.Decimal, now time.Time) error {
	if !q.IsPositive() {
		return Validationf("close quantity must be positive, got %s", q)
	}
	if q.GreaterThan(exec.OpenQuantityMT) {
		return Validationf("close quantity %s MT exceeds open quantity %s MT of the original position", q, exec.OpenQuantityMT)
	}
	remaining := exec.OpenQuantityMT.Sub(q)
	next := ExecStatusPartiallyClosed
	if remaining.IsZero() {
		next = ExecStatusClosed
	}
	if !CanTransitionExecution(exec.Status, next) {
		return Validationf("execution %d cannot move from %s to %s", exec.ID, exec.Status, next)
	}
	exec.OpenQuantityMT = remaining
	exec.Status = next
	if remaining.IsZero() {
		price := closePrice
		at := now
		exec.ClosedPrice = &price
		exec.ClosedAt = &at
	}
	return nil
}

// LinkAllocationRoom verifies a prospective allocation against the strict
// per-execution link invariant: sum of link quantities never exceeds the
// traded quantity.
func LinkAllocationRoom(exec models.HedgeExecution, allocated, q decimal.Decimal) error {
	if allocated.Add(q).GreaterThan(exec.QuantityMT) {
		return Validationf("link allocation %s MT would exceed execution %d traded quantity %s MT",
			allocated.Add(q), exec.ID, exec.QuantityMT)
	}
	return nil
}

func anchorFromRequest(req models.HedgeRequest) (level string, id uint64, ok bool) {
	switch {
	case req.BLOrderID != nil && *req.BLOrderID != 0:
		return LinkLevelBLOrder, *req.BLOrderID, true
	case req.OrderID != nil && *req.OrderID != 0:
		return LinkLevelOrder, *req.OrderID, true
	case req.TicketID != nil && *req.TicketID != 0:
		return LinkLevelTicket, *req.TicketID, true
	}
	return "", 0, false
}

func resolveAnchor(req models.HedgeRequest, lineage AnchorLineage) (string, uint64, bool) {
	if level, id, ok := anchorFromRequest(req); ok {
		return level, id, true
	}
	for _, level := range []string{LinkLevelBLOrder, LinkLevelOrder, LinkLevelTicket} {
		for _, l := range lineage.OriginalLinks {
			if l.LinkLevel == level && l.LinkID != 0 {
				return level, l.LinkID, true
			}
		}
	}
	if lineage.OriginalRequest != nil {
		return anchorFromRequest(*lineage.OriginalRequest)
	}
	return "", 0, false
}

type auditNote struct {
	At   time.Time `json:"at"`
	Note string    `json:"note"`
}

func appendAudit(exec *models.HedgeExecution, note string, now time.Time) {
	var notes []auditNote
	if len(exec.AuditLog) > 0 {
		_ = json.Unmarshal(exec.AuditLog, &notes)
	}
	notes = append(notes, auditNote{At: now, Note: note})
	if raw, err := json.Marshal(notes); err == nil {
		exec.AuditLog = raw
	}
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "USD"
	}
	return c
}

func tradeDateOrNow(d, now time.Time) time.Time {
	if d.IsZero() {
		return now
	}
	return d
}

func brokerOrInherit(b, fallback string) string {
	if b == "" {
		return fallback
	}
	return b
}
