package stage

import (
	"context"
	"errors"
	"testing"
)

func TestOutcomeConstructors(t *testing.T) {
	if o := Success("copied"); o.Status != StatusSuccess || o.Failed() {
		t.Fatalf("unexpected success outcome: %+v", o)
	}
	if o := Skipped("present"); o.Status != StatusSkipped || o.Failed() {
		t.Fatalf("unexpected skipped outcome: %+v", o)
	}
	cause := errors.New("boom")
	rec := Recoverable(cause)
	if !rec.Failed() || rec.IsFatal() || !errors.Is(rec.Reason, cause) || rec.Detail != "boom" {
		t.Fatalf("unexpected recoverable outcome: %+v", rec)
	}
	if fatal := Fatal(cause); !fatal.IsFatal() {
		t.Fatalf("expected fatal outcome, got %+v", fatal)
	}
}

func TestMergePrecedence(t *testing.T) {
	a := errors.New("a")
	b := errors.New("b")
	merged := Merge(Success("x"), Recoverable(a), Recoverable(b))
	if merged.Status != StatusRecoverable || !errors.Is(merged.Reason, a) || !errors.Is(merged.Reason, b) {
		t.Fatalf("unexpected merge: %+v", merged)
	}
	if got := Merge(Recoverable(a), Fatal(b)); !got.IsFatal() {
		t.Fatalf("expected fatal to win, got %+v", got)
	}
	if got := Merge(Skipped("one"), Success("two")); got.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", got)
	}
	if got := Merge(Skipped("one"), Skipped("two")); got.Status != StatusSkipped || got.Detail != "one; two" {
		t.Fatalf("expected skipped, got %+v", got)
	}
}

func TestFuncHandler(t *testing.T) {
	h := Func{StageName: "probe", Fn: func(context.Context) Outcome { return Success("ok") }}
	if h.Name() != "probe" || h.Run(context.Background()).Status != StatusSuccess {
		t.Fatal("unexpected handler behaviour")
	}
	if (Func{StageName: "empty"}).Run(context.Background()).Status != StatusSkipped {
		t.Fatal("nil Fn should skip")
	}
}
