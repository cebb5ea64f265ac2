package bank

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func requireValidation(t *testing.T, err error, field, code string) {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	require.Equal(t, field, ve.Field)
	require.Equal(t, code, ve.Code)
}

func requireInvalidOp(t *testing.T, err error, field, code string) {
	t.Helper()
	var ie *InvalidOperationError
	require.True(t, errors.As(err, &ie), "expected InvalidOperationError, got %v", err)
	require.Equal(t, field, ie.Field)
	require.Equal(t, code, ie.Code)
}

func TestEnterCategoryWeights_PartialThenOverflow(t *testing.T) {
	d := newTestDB(t)
	f := seedFixture(t, d)
	e := f.newExpense(t, d, "25.00")

	rows, err := EnterCategoryWeights(d, e.ID, []CategoryWeight{
		{Category: f.Food.ID, Weight: dec("0.6")},
		{Category: f.Transit.ID, Weight: dec("0.3")},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	_, err = EnterCategoryWeights(d, e.ID, []CategoryWeight{{Category: f.Other.ID, Weight: dec("0.2")}})
	requireValidation(t, err, "categories", CodeWeightSum)

	require.EqualValues(t, 2, countRows(t, d, &ExpenseCategory{}, "expense_id = ?", e.ID))
	require.EqualValues(t, 0, countRows(t, d, &ExpenseCategory{}, "category_id = ?", f.Other.ID))
}

func TestEnterCategoryWeights_ExactlyOne(t *testing.T) {
	d := newTestDB(t)
	f := seedFixture(t, d)
	e := f.newExpense(t, d, "10.00")

	_, err := EnterCategoryWeights(d, e.ID, []CategoryWeight{
		{Category: f.Food.ID, Weight: dec("0.5")},
		{Category: f.Transit.ID, Weight: dec("0.25")},
		{Category: f.Other.ID, Weight: dec("0.25")},
	})
	require.NoError(t, err)
}

func TestEnterCategoryWeights_Rejections(t *testing.T) {
	d := newTestDB(t)
	f := seedFixture(t, d)
	e := f.newExpense(t, d, "10.00")

	_, err := EnterCategoryWeights(d, e.ID, []CategoryWeight{{Category: f.Food.ID, Weight: dec("0.4")}})
	require.NoError(t, err)

	tests := []struct {
		name    string
		weights []CategoryWeight
		code    string
	}{
		{"above one", []CategoryWeight{{Category: f.Transit.ID, Weight: dec("1.5")}}, CodeInvalid},
		{"negative", []CategoryWeight{{Category: f.Transit.ID, Weight: dec("-0.1")}}, CodeInvalid},
		{"three decimals", []CategoryWeight{{Category: f.Transit.ID, Weight: dec("0.333")}}, CodeInvalid},
		{"repeated in batch", []CategoryWeight{
			{Category: f.Transit.ID, Weight: dec("0.1")},
			{Category: f.Transit.ID, Weight: dec("0.1")},
		}, CodeUnique},
		{"already on expense", []CategoryWeight{{Category: f.Food.ID, Weight: dec("0.1")}}, CodeUnique},
		{"missing category", []CategoryWeight{{Category: 9999, Weight: dec("0.1")}}, CodeDoesNotExist},
		{"batch overflows", []CategoryWeight{
			{Category: f.Transit.ID, Weight: dec("0.3")},
			{Category: f.Other.ID, Weight: dec("0.31")},
		}, CodeWeightSum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EnterCategoryWeights(d, e.ID, tt.weights)
			requireValidation(t, err, "categories", tt.code)
			require.EqualValues(t, 1, countRows(t, d, &ExpenseCategory{}, "expense_id = ?", e.ID))
		})
	}
}

func TestEnterCategoryWeights_Empty(t *testing.T) {
	d := newTestDB(t)
	f := seedFixture(t, d)
	e := f.newExpense(t, d, "10.00")

	rows, err := EnterCategoryWeights(d, e.ID, nil)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestEnterCategoryWeights_MissingExpense(t *testing.T) {
	d := newTestDB(t)
	f := seedFixture(t, d)

	_, err := EnterCategoryWeights(d, 4242, []CategoryWeight{{Category: f.Food.ID, Weight: dec("0.5")}})
	requireValidation(t, err, "expense", CodeDoesNotExist)
}

func TestEnterCategoryWeights_ConcurrentBatchesKeepSum(t *testing.T) {
	d := newTestDB(t)
	f := seedFixture(t, d)
	e := f.newExpense(t, d, "20.00")

	catgs := []uint{f.Food.ID, f.Transit.ID, f.Other.ID}
	var wg sync.WaitGroup
	errs := make([]error, len(catgs))
	for i, c := range catgs {
		wg.Add(1)
		go func(i int, c uint) {
			defer wg.Done()
			errs[i] = d.Transaction(func(tx *gorm.DB) error {
				_, err := EnterCategoryWeights(tx, e.ID, []CategoryWeight{{Category: c, Weight: dec("0.6")}})
				return err
			})
		}(i, c)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireValidation(t, err, "categories", CodeWeightSum)
	}
	require.Equal(t, 1, succeeded)
	require.EqualValues(t, 1, countRows(t, d, &ExpenseCategory{}, "expense_id = ?", e.ID))
}
