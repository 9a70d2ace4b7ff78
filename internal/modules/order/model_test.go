package order

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusPreparing, false},
		{StatusPending, StatusDelivering, false},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusPreparing, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusDelivering, false},
		{StatusConfirmed, StatusCompleted, false},
		{StatusPreparing, StatusDelivering, true},
		{StatusPreparing, StatusCancelled, true},
		{StatusPreparing, StatusCompleted, false},
		{StatusPreparing, StatusConfirmed, false},
		{StatusDelivering, StatusCompleted, true},
		{StatusDelivering, StatusCancelled, true},
		{StatusDelivering, StatusPreparing, false},
		// Terminal statuses have no outgoing edges.
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusCompleted, false},
		// Unknown origins never transition.
		{StatusNone, StatusPending, false},
		{Status("bogus"), StatusConfirmed, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestRecomputeTotals(t *testing.T) {
	o := &Order{
		Lines: []Line{
			{ItemID: "banh-mi", Quantity: 2, UnitPrice: 25000},
			{ItemID: "pho", Quantity: 1, UnitPrice: 60000},
			{ItemID: "coffee", Quantity: 1, UnitPrice: 20000},
		},
	}
	o.RecomputeTotals()

	if o.Lines[0].Subtotal != 50000 {
		t.Errorf("line 0 subtotal = %d, want 50000", o.Lines[0].Subtotal)
	}
	if o.Lines[1].Subtotal != 60000 {
		t.Errorf("line 1 subtotal = %d, want 60000", o.Lines[1].Subtotal)
	}
	if o.TotalAmount != 130000 {
		t.Errorf("total = %d, want 130000", o.TotalAmount)
	}

	// Totals follow line mutations, not accumulate across calls.
	o.Lines[2].Quantity = 3
	o.RecomputeTotals()
	if o.TotalAmount != 170000 {
		t.Errorf("total after mutation = %d, want 170000", o.TotalAmount)
	}
}

func TestRecomputeTotalsEmptyOrder(t *testing.T) {
	o := &Order{TotalAmount: 999}
	o.RecomputeTotals()
	if o.TotalAmount != 0 {
		t.Errorf("total = %d, want 0 for no lines", o.TotalAmount)
	}
}
