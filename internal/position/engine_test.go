package position

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"metalops/internal/models"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func approvedRequest(qty int64) models.HedgeRequest {
	return models.HedgeRequest{
		ID:         7,
		Metal:      "COPPER",
		Direction:  DirectionBuy,
		QuantityMT: decimal.NewFromInt(qty),
		Status:     ReqStatusApproved,
		Source:     SourceManual,
	}
}

func openExecution(id uint64, qty int64) models.HedgeExecution {
	return models.HedgeExecution{
		ID:             id,
		Metal:          "COPPER",
		Direction:      DirectionBuy,
		QuantityMT:     decimal.NewFromInt(qty),
		OpenQuantityMT: decimal.NewFromInt(qty),
		ExecutedPrice:  decimal.NewFromInt(9500),
		Currency:       "USD",
		TradeDate:      testNow,
		MaturityDate:   testNow.AddDate(0, 3, 0),
		Status:         ExecStatusOpen,
	}
}

func openInput() OpenInput {
	return OpenInput{
		Price:        decimal.NewFromInt(9500),
		Currency:     "USD",
		TradeDate:    testNow,
		MaturityDate: testNow.AddDate(0, 3, 0),
		Broker:       "LME Broker",
	}
}

func TestOpen_ApprovedRequest(t *testing.T) {
	req := approvedRequest(100)
	out, err := Open(req, openInput(), testNow)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !out.Execution.QuantityMT.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("quantity=%s want 100", out.Execution.QuantityMT)
	}
	if !out.Execution.OpenQuantityMT.Equal(out.Execution.QuantityMT) {
		t.Fatalf("open=%s want full quantity", out.Execution.OpenQuantityMT)
	}
	if out.Execution.Status != ExecStatusOpen {
		t.Fatalf("status=%s want open", out.Execution.Status)
	}
	if out.Execution.HedgeRequestID == nil || *out.Execution.HedgeRequestID != req.ID {
		t.Fatalf("hedge_request_id not set")
	}
	if out.Request.Status != ReqStatusExecuted {
		t.Fatalf("request status=%s want executed", out.Request.Status)
	}
	if out.Link != nil {
		t.Fatalf("unexpected link without anchor")
	}
}

func TestOpen_WithOrderAnchorCreatesInitialLink(t *testing.T) {
	req := approvedRequest(100)
	orderID := uint64(41)
	req.OrderID = &orderID
	out, err := Open(req, openInput(), testNow)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.Link == nil {
		t.Fatalf("expected INITIAL_HEDGE link")
	}
	if out.Link.AllocationType != AllocationInitialHedge {
		t.Fatalf("allocation=%s", out.Link.AllocationType)
	}
	if out.Link.LinkLevel != LinkLevelOrder || out.Link.LinkID != orderID {
		t.Fatalf("anchor=%s/%d", out.Link.LinkLevel, out.Link.LinkID)
	}
	if !out.Link.QuantityMT.Equal(req.QuantityMT) {
		t.Fatalf("link quantity=%s want full", out.Link.QuantityMT)
	}
}

func TestOpen_Rejections(t *testing.T) {
	req := approvedRequest(100)

	in := openInput()
	in.Price = decimal.Zero
	if _, err := Open(req, in, testNow); !IsValidation(err) {
		t.Fatalf("price=0: err=%v want validation", err)
	}

	in = openInput()
	in.MaturityDate = time.Time{}
	if _, err := Open(req, in, testNow); !IsValidation(err) {
		t.Fatalf("missing maturity: err=%v want validation", err)
	}

	req.Status = ReqStatusDraft
	if _, err := Open(req, openInput(), testNow); !IsValidation(err) {
		t.Fatalf("draft request: err=%v want validation", err)
	}

	req = approvedRequest(100)
	req.QuantityMT = decimal.Zero
	if _, err := Open(req, openInput(), testNow); !IsValidation(err) {
		t.Fatalf("quantity=0: err=%v want validation", err)
	}
}

func rollInput(q int64) RollInput {
	return RollInput{
		Quantity:    decimal.NewFromInt(q),
		ClosePrice:  decimal.NewFromInt(9600),
		NewPrice:    decimal.NewFromInt(9650),
		NewMaturity: testNow.AddDate(0, 6, 0),
	}
}

func TestRoll_Partial(t *testing.T) {
	orig := openExecution(11, 100)
	out, err := Roll(nil, orig, rollInput(60), testNow)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !out.Original.OpenQuantityMT.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("original open=%s want 40", out.Original.OpenQuantityMT)
	}
	if out.Original.Status != ExecStatusPartiallyClosed {
		t.Fatalf("original status=%s want partially_closed", out.Original.Status)
	}
	if out.Original.ClosedPrice != nil || out.Original.ClosedAt != nil {
		t.Fatalf("partial close must not set closed price/at")
	}
	if !out.NewLeg.QuantityMT.Equal(decimal.NewFromInt(60)) || !out.NewLeg.OpenQuantityMT.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("new leg qty=%s open=%s want 60/60", out.NewLeg.QuantityMT, out.NewLeg.OpenQuantityMT)
	}
	if out.NewLeg.Status != ExecStatusOpen {
		t.Fatalf("new leg status=%s", out.NewLeg.Status)
	}
	if out.Roll.CloseExecutionID != orig.ID {
		t.Fatalf("roll close id=%d", out.Roll.CloseExecutionID)
	}
	if !out.Roll.RolledQtyMT.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("rolled qty=%s", out.Roll.RolledQtyMT)
	}
}

// Rolling the full open quantity always closes the original and yields a
// fully open new leg of the same size.
func TestRoll_FullCloseRoundTrip(t *testing.T) {
	orig := openExecution(11, 100)
	out, err := Roll(nil, orig, rollInput(100), testNow)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.Original.Status != ExecStatusClosed {
		t.Fatalf("original status=%s want closed", out.Original.Status)
	}
	if !out.Original.OpenQuantityMT.IsZero() {
		t.Fatalf("original open=%s want 0", out.Original.OpenQuantityMT)
	}
	if out.Original.ClosedPrice == nil || !out.Original.ClosedPrice.Equal(decimal.NewFromInt(9600)) {
		t.Fatalf("closed price not set to close price")
	}
	if out.Original.ClosedAt == nil {
		t.Fatalf("closed_at not set")
	}
	if out.NewLeg.Status != ExecStatusOpen || !out.NewLeg.OpenQuantityMT.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("new leg status=%s open=%s", out.NewLeg.Status, out.NewLeg.OpenQuantityMT)
	}
}

func TestRoll_QuantityBounds(t *testing.T) {
	orig := openExecution(11, 100)

	if _, err := Roll(nil, orig, rollInput(0), testNow); !IsValidation(err) {
		t.Fatalf("q=0: err=%v want validation", err)
	}
	if _, err := Roll(nil, orig, rollInput(101), testNow); !IsValidation(err) {
		t.Fatalf("q over open: err=%v want validation", err)
	}

	in := rollInput(50)
	in.NewMaturity = time.Time{}
	if _, err := Roll(nil, orig, in, testNow); !IsValidation(err) {
		t.Fatalf("missing maturity: err=%v want validation", err)
	}
	in = rollInput(50)
	in.NewPrice = decimal.Zero
	if _, err := Roll(nil, orig, in, testNow); !IsValidation(err) {
		t.Fatalf("price=0: err=%v want validation", err)
	}
}

// An exhausted execution rejects every further close-type operation with
// the same error class, no matter how often it is retried.
func TestRoll_ExhaustedAlwaysRejects(t *testing.T) {
	orig := openExecution(11, 100)
	orig.OpenQuantityMT = decimal.Zero
	orig.Status = ExecStatusClosed
	for i := 0; i < 2; i++ {
		if _, err := Roll(nil, orig, rollInput(10), testNow); !IsValidation(err) {
			t.Fatalf("attempt %d: err=%v want validation", i, err)
		}
	}
}

func TestFixingClose_FullClose(t *testing.T) {
	orig := openExecution(21, 50)
	out, err := FixingClose(nil, orig, decimal.Zero, FixingCloseInput{
		Quantity: decimal.NewFromInt(50),
		Price:    decimal.NewFromInt(9700),
	}, testNow)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.Original.Status != ExecStatusClosed {
		t.Fatalf("status=%s want closed", out.Original.Status)
	}
	if !out.Original.OpenQuantityMT.IsZero() {
		t.Fatalf("open=%s want 0", out.Original.OpenQuantityMT)
	}
	if out.Original.ClosedPrice == nil || !out.Original.ClosedPrice.Equal(decimal.NewFromInt(9700)) {
		t.Fatalf("closed price=%v want 9700", out.Original.ClosedPrice)
	}
}

func TestFixingClose_OverCloseRejected(t *testing.T) {
	orig := openExecution(22, 100)
	orig.OpenQuantityMT = decimal.NewFromInt(30)
	orig.Status = ExecStatusPartiallyClosed
	before := orig
	_, err := FixingClose(nil, orig, decimal.Zero, FixingCloseInput{
		Quantity: decimal.NewFromInt(31),
		Price:    decimal.NewFromInt(9500),
	}, testNow)
	if !IsValidation(err) {
		t.Fatalf("err=%v want validation", err)
	}
	if !orig.OpenQuantityMT.Equal(before.OpenQuantityMT) || orig.Status != before.Status {
		t.Fatalf("original mutated on rejection")
	}
}

func TestFixingClose_AnchoredRequestCreatesPriceFixLink(t *testing.T) {
	orig := openExecution(23, 100)
	req := approvedRequest(40)
	orderID := uint64(9)
	req.OrderID = &orderID
	out, err := FixingClose(&req, orig, decimal.NewFromInt(10), FixingCloseInput{
		Quantity: decimal.NewFromInt(40),
		Price:    decimal.NewFromInt(9400),
	}, testNow)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.Link == nil {
		t.Fatalf("expected PRICE_FIX link")
	}
	if out.Link.AllocationType != AllocationPriceFix {
		t.Fatalf("allocation=%s", out.Link.AllocationType)
	}
	if out.Link.ExecutionID != orig.ID {
		t.Fatalf("link execution=%d want original", out.Link.ExecutionID)
	}
	if out.Link.Side != DirectionSell {
		t.Fatalf("side=%s want SELL for a BUY hedge fix", out.Link.Side)
	}
	if out.Link.FixingPrice == nil || !out.Link.FixingPrice.Equal(decimal.NewFromInt(9400)) {
		t.Fatalf("fixing price=%v", out.Link.FixingPrice)
	}
	if out.Request.Status != ReqStatusExecuted {
		t.Fatalf("request status=%s", out.Request.Status)
	}
}

func TestFixingClose_LinkOverAllocationRejected(t *testing.T) {
	orig := openExecution(24, 100)
	req := approvedRequest(40)
	orderID := uint64(9)
	req.OrderID = &orderID
	// 70 already allocated; another 40 would exceed the traded 100.
	_, err := FixingClose(&req, orig, decimal.NewFromInt(70), FixingCloseInput{
		Quantity: decimal.NewFromInt(40),
		Price:    decimal.NewFromInt(9400),
	}, testNow)
	if !IsValidation(err) {
		t.Fatalf("err=%v want validation", err)
	}
}

func TestPriceFix_AnchorFromRequest(t *testing.T) {
	req := approvedRequest(25)
	req.Direction = DirectionSell
	ticketID := uint64(5)
	req.TicketID = &ticketID
	out, err := PriceFix(req, nil, AnchorLineage{}, PriceFixInput{
		Price:        decimal.NewFromInt(9550),
		MaturityDate: testNow.AddDate(0, 1, 0),
	}, testNow)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.Execution.Direction != DirectionSell {
		t.Fatalf("direction=%s", out.Execution.Direction)
	}
	if out.Link == nil || out.Link.LinkLevel != LinkLevelTicket || out.Link.LinkID != ticketID {
		t.Fatalf("anchor=%+v want request ticket", out.Link)
	}
	if out.Request.Status != ReqStatusExecuted {
		t.Fatalf("request status=%s", out.Request.Status)
	}
}

// Anchor inheritance: a request without its own anchor inherits the order
// the original execution's link points at.
func TestPriceFix_AnchorInheritedFromOriginalLinks(t *testing.T) {
	req := approvedRequest(20)
	req.Direction = DirectionSell
	orig := openExecution(31, 20)
	lineage := AnchorLineage{
		OriginalLinks: []models.HedgeLink{
			{ExecutionID: orig.ID, LinkLevel: LinkLevelOrder, LinkID: 101, QuantityMT: decimal.NewFromInt(20)},
		},
	}
	out, err := PriceFix(req, &orig, lineage, PriceFixInput{
		Price:        decimal.NewFromInt(9550),
		MaturityDate: testNow.AddDate(0, 1, 0),
	}, testNow)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.Link == nil || out.Link.LinkLevel != LinkLevelOrder || out.Link.LinkID != 101 {
		t.Fatalf("anchor=%+v want inherited order 101", out.Link)
	}
	if out.Original == nil || !out.Original.OpenQuantityMT.IsZero() || out.Original.Status != ExecStatusClosed {
		t.Fatalf("original not closed by full fix: %+v", out.Original)
	}
}

func TestPriceFix_AnchorPreferenceBLOverOrderOverTicket(t *testing.T) {
	req := approvedRequest(10)
	lineage := AnchorLineage{
		OriginalLinks: []models.HedgeLink{
			{LinkLevel: LinkLevelTicket, LinkID: 3},
			{LinkLevel: LinkLevelBLOrder, LinkID: 8},
			{LinkLevel: LinkLevelOrder, LinkID: 5},
		},
	}
	out, err := PriceFix(req, nil, lineage, PriceFixInput{
		Price:        decimal.NewFromInt(9550),
		MaturityDate: testNow.AddDate(0, 1, 0),
	}, testNow)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.Link == nil || out.Link.LinkLevel != LinkLevelBLOrder || out.Link.LinkID != 8 {
		t.Fatalf("anchor=%+v want BL order 8", out.Link)
	}
}

func TestPriceFix_AnchorFallsBackToOriginatingRequest(t *testing.T) {
	req := approvedRequest(10)
	blID := uint64(77)
	lineage := AnchorLineage{
		OriginalRequest: &models.HedgeRequest{BLOrderID: &blID},
	}
	out, err := PriceFix(req, nil, lineage, PriceFixInput{
		Price:        decimal.NewFromInt(9550),
		MaturityDate: testNow.AddDate(0, 1, 0),
	}, testNow)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.Link == nil || out.Link.LinkLevel != LinkLevelBLOrder || out.Link.LinkID != blID {
		t.Fatalf("anchor=%+v want BL order from originating request", out.Link)
	}
}

func TestPriceFix_Rejections(t *testing.T) {
	req := approvedRequest(10)
	if _, err := PriceFix(req, nil, AnchorLineage{}, PriceFixInput{
		Price:        decimal.Zero,
		MaturityDate: testNow,
	}, testNow); !IsValidation(err) {
		t.Fatalf("price=0: err=%v want validation", err)
	}
	if _, err := PriceFix(req, nil, AnchorLineage{}, PriceFixInput{
		Price: decimal.NewFromInt(9550),
	}, testNow); !IsValidation(err) {
		t.Fatalf("missing maturity: err=%v want validation", err)
	}
	orig := openExecution(41, 5)
	if _, err := PriceFix(req, &orig, AnchorLineage{}, PriceFixInput{
		Price:        decimal.NewFromInt(9550),
		MaturityDate: testNow.AddDate(0, 1, 0),
	}, testNow); !IsValidation(err) {
		t.Fatalf("fix qty over original open: err=%v want validation", err)
	}
}

func TestAppendAuditAccumulates(t *testing.T) {
	orig := openExecution(51, 100)
	out, err := Roll(nil, orig, rollInput(30), testNow)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	out2, err := Roll(nil, out.Original, rollInput(30), testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(out2.Original.AuditLog) == 0 {
		t.Fatalf("audit log empty")
	}
}
