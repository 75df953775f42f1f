package service

import (
	"context"
	"testing"

	"metalops/internal/position"
)

func TestRequestLifecycleHappyPath(t *testing.T) {
	repo := newStubRepo()
	s := &RequestService{Repo: repo}

	req, err := s.Create(context.Background(), CreateRequestInput{
		Metal:      "aluminium",
		Direction:  position.DirectionSell,
		QuantityMT: mt(250),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.Status != position.ReqStatusDraft || req.Source != position.SourceManual {
		t.Fatalf("new request: %+v", req)
	}

	if _, err := s.Submit(context.Background(), req.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got, err := s.Approve(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != position.ReqStatusApproved {
		t.Fatalf("status after approve: %s", got.Status)
	}
}

func TestRequestCreateValidation(t *testing.T) {
	s := &RequestService{Repo: newStubRepo()}

	if _, err := s.Create(context.Background(), CreateRequestInput{Direction: position.DirectionBuy, QuantityMT: mt(10)}); !position.IsValidation(err) {
		t.Fatalf("missing metal: %v", err)
	}
	if _, err := s.Create(context.Background(), CreateRequestInput{Metal: "zinc", Direction: "LONG", QuantityMT: mt(10)}); !position.IsValidation(err) {
		t.Fatalf("bad direction: %v", err)
	}
	if _, err := s.Create(context.Background(), CreateRequestInput{Metal: "zinc", Direction: position.DirectionBuy, QuantityMT: mt(0)}); !position.IsValidation(err) {
		t.Fatalf("zero quantity: %v", err)
	}
}

func TestRequestRejectRequiresReason(t *testing.T) {
	repo := newStubRepo()
	s := &RequestService{Repo: repo}
	req, _ := s.Create(context.Background(), CreateRequestInput{Metal: "zinc", Direction: position.DirectionBuy, QuantityMT: mt(10)})
	if _, err := s.Submit(context.Background(), req.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := s.Reject(context.Background(), req.ID, "too short"); !position.IsValidation(err) {
		t.Fatalf("short reason should be rejected: %v", err)
	}
	got, err := s.Reject(context.Background(), req.ID, "budget for Q4 hedging is exhausted")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != position.ReqStatusRejected || got.RejectReason == "" {
		t.Fatalf("after reject: %+v", got)
	}
}

func TestRequestUpdateOnlyDrafts(t *testing.T) {
	repo := newStubRepo()
	s := &RequestService{Repo: repo}
	req, _ := s.Create(context.Background(), CreateRequestInput{Metal: "zinc", Direction: position.DirectionBuy, QuantityMT: mt(10)})

	qty := mt(25)
	got, err := s.Update(context.Background(), req.ID, UpdateRequestInput{QuantityMT: &qty})
	if err != nil {
		t.Fatalf("update draft: %v", err)
	}
	if !got.QuantityMT.Equal(mt(25)) {
		t.Fatalf("quantity not updated: %s", got.QuantityMT)
	}

	if _, err := s.Submit(context.Background(), req.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := s.Update(context.Background(), req.ID, UpdateRequestInput{QuantityMT: &qty}); !position.IsValidation(err) {
		t.Fatalf("submitted request must not be editable: %v", err)
	}
}

func TestRequestTerminalStatesFrozen(t *testing.T) {
	repo := newStubRepo()
	s := &RequestService{Repo: repo}
	req, _ := s.Create(context.Background(), CreateRequestInput{Metal: "zinc", Direction: position.DirectionBuy, QuantityMT: mt(10)})
	if _, err := s.Cancel(context.Background(), req.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := s.Submit(context.Background(), req.ID); !position.IsValidation(err) {
		t.Fatalf("cancelled request must not submit: %v", err)
	}
	if _, err := s.Approve(context.Background(), req.ID); !position.IsValidation(err) {
		t.Fatalf("cancelled request must not approve: %v", err)
	}
}

func TestRequestDelete(t *testing.T) {
	repo := newStubRepo()
	s := &RequestService{Repo: repo}
	req, _ := s.Create(context.Background(), CreateRequestInput{Metal: "zinc", Direction: position.DirectionBuy, QuantityMT: mt(10)})

	if err := s.Delete(context.Background(), req.ID, ""); !position.IsValidation(err) {
		t.Fatalf("delete without reason: %v", err)
	}
	if err := s.Delete(context.Background(), req.ID, "entered twice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(context.Background(), req.ID); !position.IsNotFound(err) {
		t.Fatalf("deleted request should be gone from reads: %v", err)
	}

	// Executed requests stay for audit.
	executed, _ := s.Create(context.Background(), CreateRequestInput{Metal: "zinc", Direction: position.DirectionBuy, QuantityMT: mt(10)})
	repo.requests[executed.ID].Status = position.ReqStatusExecuted
	if err := s.Delete(context.Background(), executed.ID, "cleanup"); !position.IsValidation(err) {
		t.Fatalf("executed request must not be deletable: %v", err)
	}
}
