package model

import "testing"

func TestFullyReturned(t *testing.T) {
	l := &Loan{Items: []LoanItem{
		{CopyID: 1, IsReturned: true},
		{CopyID: 2, IsReturned: false},
	}}
	if l.FullyReturned() {
		t.Error("expected not fully returned with one open item")
	}

	l.Items[1].IsReturned = true
	if !l.FullyReturned() {
		t.Error("expected fully returned after all items returned")
	}

	empty := &Loan{}
	if !empty.FullyReturned() {
		t.Error("expected loan with no items to count as fully returned")
	}
}

func TestValidCondition(t *testing.T) {
	for _, c := range []string{ConditionGood, ConditionDamaged, ConditionLost} {
		if !ValidCondition(c) {
			t.Errorf("expected %q to be valid", c)
		}
	}
	for _, c := range []string{"", "good", "BROKEN"} {
		if ValidCondition(c) {
			t.Errorf("expected %q to be invalid", c)
		}
	}
}

func TestValidCopyStatus(t *testing.T) {
	for _, s := range []string{CopyStatusAvailable, CopyStatusBorrowed, CopyStatusLost, CopyStatusDamaged} {
		if !ValidCopyStatus(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if ValidCopyStatus("MISSING") {
		t.Error("expected MISSING to be invalid")
	}
}
