package bank

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompleteOrder_DefaultsToOrderAmountAndMemo(t *testing.T) {
	d := newTestDB(t)
	f := seedFixture(t, d)
	o := f.newOrder(t, d, "A-100", "59.99", 1)

	e, err := CompleteOrder(context.Background(), d, CompleteOrderInput{
		OrderID:   o.ID,
		DatePaid:  day("2024-03-04"),
		CreatedBy: "alice",
		Tags:      []uint{f.Groceries.ID},
		Categories: []CategoryWeight{
			{Category: f.Food.ID, Weight: dec("1")},
		},
	})
	require.NoError(t, err)
	require.True(t, e.Amount.Equal(dec("59.99")))
	require.Equal(t, "order A-100", e.Memo)
	require.Equal(t, "alice", e.CreatedBy)
	require.NotNil(t, e.OrderID)
	require.Equal(t, o.ID, *e.OrderID)
	require.Nil(t, e.ShipmentNo)
	require.Equal(t, f.Location.ID, e.LocationID)
	require.Equal(t, []uint{f.Groceries.ID}, tagIDs(e.Tags))
	require.Len(t, e.Categories, 1)

	var reloaded Order
	require.NoError(t, d.First(&reloaded, o.ID).Error)
	require.True(t, reloaded.IsComplete)
}

func TestCompleteOrder_Overrides(t *testing.T) {
	d := newTestDB(t)
	f := seedFixture(t, d)
	o := f.newOrder(t, d, "A-101", "80.00", 1)

	amount := dec("75.50")
	memo := "with coupon"
	e, err := CompleteOrder(context.Background(), d, CompleteOrderInput{
		OrderID:   o.ID,
		DatePaid:  day("2024-03-04"),
		CreatedBy: "alice",
		Amount:    &amount,
		Memo:      &memo,
	})
	require.NoError(t, err)
	require.True(t, e.Amount.Equal(amount))
	require.Equal(t, memo, e.Memo)
}

func TestCompleteOrder_AlreadyComplete(t *testing.T) {
	d := newTestDB(t)
	f := seedFixture(t, d)
	o := f.newOrder(t, d, "A-102", "10.00", 1)

	in := CompleteOrderInput{OrderID: o.ID, DatePaid: day("2024-03-04"), CreatedBy: "alice"}
	_, err := CompleteOrder(context.Background(), d, in)
	require.NoError(t, err)

	_, err = CompleteOrder(context.Background(), d, in)
	requireInvalidOp(t, err, "order", CodeAlreadyComplete)
	require.EqualValues(t, 1, countRows(t, d, &Expense{}, "order_id = ?", o.ID))
}

func TestCompleteOrder_CancelledAndMissing(t *testing.T) {
	d := newTestDB(t)
	f := seedFixture(t, d)
	o := f.newOrder(t, d, "A-103", "10.00", 1)
	require.NoError(t, d.Model(&o).Update("is_cancelled", true).Error)

	_, err := CompleteOrder(context.Background(), d, CompleteOrderInput{OrderID: o.ID, DatePaid: day("2024-03-04")})
	requireInvalidOp(t, err, "order", CodeCancelled)

	_, err = CompleteOrder(context.Background(), d, CompleteOrderInput{OrderID: 4242, DatePaid: day("2024-03-04")})
	requireValidation(t, err, "order", CodeDoesNotExist)

	require.EqualValues(t, 0, countRows(t, d, &Expense{}, ""))
}

func TestCompleteOrder_CompleteReportedBeforeCancelled(t *testing.T) {
	d := newTestDB(t)
	f := seedFixture(t, d)
	o := f.newOrder(t, d, "A-106", "10.00", 1)

	_, err := CompleteOrder(context.Background(), d, CompleteOrderInput{OrderID: o.ID, DatePaid: day("2024-03-04")})
	require.NoError(t, err)
	require.NoError(t, d.Model(&o).Update("is_cancelled", true).Error)

	_, err = CompleteOrder(context.Background(), d, CompleteOrderInput{OrderID: o.ID, DatePaid: day("2024-03-05")})
	requireInvalidOp(t, err, "order", CodeAlreadyComplete)
}

func TestCompleteOrder_LedgerFailureRollsBack(t *testing.T) {
	d := newTestDB(t)
	f := seedFixture(t, d)
	o := f.newOrder(t, d, "A-104", "10.00", 1)

	_, err := CompleteOrder(context.Background(), d, CompleteOrderInput{
		OrderID:   o.ID,
		DatePaid:  day("2024-03-04"),
		CreatedBy: "alice",
		Tags:      []uint{f.Gas.ID},
		Categories: []CategoryWeight{
			{Category: f.Food.ID, Weight: dec("0.7")},
			{Category: f.Transit.ID, Weight: dec("0.7")},
		},
	})
	requireValidation(t, err, "categories", CodeWeightSum)

	var reloaded Order
	require.NoError(t, d.First(&reloaded, o.ID).Error)
	require.False(t, reloaded.IsComplete)
	require.EqualValues(t, 0, countRows(t, d, &Expense{}, ""))
}

func TestCompleteOrder_ConcurrentSingleWinner(t *testing.T) {
	d := newTestDB(t)
	f := seedFixture(t, d)
	o := f.newOrder(t, d, "A-105", "10.00", 1)

	const workers = 6
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = CompleteOrder(context.Background(), d, CompleteOrderInput{
				OrderID: o.ID, DatePaid: day("2024-03-04"), CreatedBy: "alice",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireInvalidOp(t, err, "order", CodeAlreadyComplete)
	}
	require.Equal(t, 1, succeeded)
	require.EqualValues(t, 1, countRows(t, d, &Expense{}, "order_id = ?", o.ID))
}

func TestCompleteShipment_TwoShipments(t *testing.T) {
	d := newTestDB(t)
	f := seedFixture(t, d)
	o := f.newOrder(t, d, "B-200", "100.00", 2)
	ctx := context.Background()

	first, err := CompleteShipment(ctx, d, CompleteShipmentInput{
		OrderID: o.ID, DatePaid: day("2024-03-04"), CreatedBy: "alice",
		Amount: dec("40.00"), Memo: "box 1", ShipmentNo: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, first.ShipmentNo)
	require.EqualValues(t, 1, *first.ShipmentNo)

	var reloaded Order
	require.NoError(t, d.First(&reloaded, o.ID).Error)
	require.False(t, reloaded.IsComplete)
	require.EqualValues(t, 1, countRows(t, d, &Expense{}, "order_id = ?", o.ID))

	_, err = CompleteShipment(ctx, d, CompleteShipmentInput{
		OrderID: o.ID, DatePaid: day("2024-03-09"), CreatedBy: "alice",
		Amount: dec("60.00"), Memo: "box 2", ShipmentNo: 2,
	})
	require.NoError(t, err)

	require.NoError(t, d.First(&reloaded, o.ID).Error)
	require.True(t, reloaded.IsComplete)
	require.EqualValues(t, 2, countRows(t, d, &Expense{}, "order_id = ?", o.ID))

	_, err = CompleteShipment(ctx, d, CompleteShipmentInput{
		OrderID: o.ID, DatePaid: day("2024-03-10"), Amount: dec("1.00"), ShipmentNo: 2,
	})
	requireInvalidOp(t, err, "order", CodeAlreadyComplete)
}

func TestCompleteShipment_Preconditions(t *testing.T) {
	d := newTestDB(t)
	f := seedFixture(t, d)
	single := f.newOrder(t, d, "C-1", "50.00", 1)
	multi := f.newOrder(t, d, "C-2", "50.00", 3)
	ctx := context.Background()

	_, err := CompleteShipment(ctx, d, CompleteShipmentInput{OrderID: multi.ID, Amount: dec("10.00"), ShipmentNo: 1})
	require.NoError(t, err)

	tests := []struct {
		name  string
		in    CompleteShipmentInput
		op    bool
		field string
		code  string
	}{
		{"single shipment order", CompleteShipmentInput{OrderID: single.ID, Amount: dec("10.00"), ShipmentNo: 1}, true, "order", CodeSingleShipment},
		{"shipment past count", CompleteShipmentInput{OrderID: multi.ID, Amount: dec("10.00"), ShipmentNo: 4}, false, "shipment_no", CodeMaxValue},
		{"shipment zero", CompleteShipmentInput{OrderID: multi.ID, Amount: dec("10.00"), ShipmentNo: 0}, false, "shipment_no", CodeMinValue},
		{"amount over order", CompleteShipmentInput{OrderID: multi.ID, Amount: dec("50.01"), ShipmentNo: 2}, false, "amount", CodeExceedsOrder},
		{"duplicate shipment", CompleteShipmentInput{OrderID: multi.ID, Amount: dec("10.00"), ShipmentNo: 1}, false, "shipment_no", CodeDuplicate},
		{"missing order", CompleteShipmentInput{OrderID: 777, Amount: dec("10.00"), ShipmentNo: 1}, false, "order", CodeDoesNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompleteShipment(ctx, d, tt.in)
			if tt.op {
				requireInvalidOp(t, err, tt.field, tt.code)
			} else {
				requireValidation(t, err, tt.field, tt.code)
			}
			require.EqualValues(t, 1, countRows(t, d, &Expense{}, ""))
		})
	}
}
