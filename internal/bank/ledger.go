package bank

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var maxWeight = decimal.NewFromInt(1)

// CategoryWeight is one (category, weight) pair of a batch.
type CategoryWeight struct {
	Category uint            `json:"category"`
	Weight   decimal.Decimal `json:"weight"`
}

// validWeight reports whether w is in [0, 1] with at most two decimals.
func validWeight(w decimal.Decimal) bool {
	return !w.IsNegative() && w.LessThanOrEqual(maxWeight) && w.Equal(w.Round(2))
}

// EnterCategoryWeights associates the expense with each category in weights.
// Every check runs before the first insert, so the batch lands whole or not at all.
// The expense row stays locked until tx ends, so concurrent batches for the
// same expense see each other's weights.
func EnterCategoryWeights(tx *gorm.DB, expenseID uint, weights []CategoryWeight) ([]ExpenseCategory, error) {
	if len(weights) == 0 {
		return nil, nil
	}
	if _, err := lockRow[Expense](tx, "expense", expenseID); err != nil {
		return nil, err
	}

	for _, cw := range weights {
		if !validWeight(cw.Weight) {
			return nil, invalid("categories", CodeInvalid,
				"weight %s for category %d must be between 0 and 1 with at most 2 decimal places", cw.Weight, cw.Category)
		}
	}

	ids := lo.Map(weights, func(cw CategoryWeight, _ int) uint { return cw.Category })
	if dups := lo.FindDuplicates(ids); len(dups) > 0 {
		return nil, invalid("categories", CodeUnique, "category %d listed more than once", dups[0])
	}

	var found []uint
	if err := tx.Model(&Category{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, fmt.Errorf("look up categories: %w", err)
	}
	if missing, _ := lo.Difference(ids, found); len(missing) > 0 {
		return nil, invalid("categories", CodeDoesNotExist, "category %d does not exist", missing[0])
	}

	var existing []ExpenseCategory
	if err := tx.Where("expense_id = ?", expenseID).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("load existing categories: %w", err)
	}

	total := decimal.Zero
	for _, ec := range existing {
		if lo.Contains(ids, ec.CategoryID) {
			return nil, invalid("categories", CodeUnique,
				"expense %d already has category %d", expenseID, ec.CategoryID)
		}
		total = total.Add(ec.Weight)
	}
	for _, cw := range weights {
		total = total.Add(cw.Weight)
	}
	if total.GreaterThan(maxWeight) {
		return nil, invalid("categories", CodeWeightSum, "category weights sum to %s, must not exceed 1", total)
	}

	rows := lo.Map(weights, func(cw CategoryWeight, _ int) ExpenseCategory {
		return ExpenseCategory{ExpenseID: expenseID, CategoryID: cw.Category, Weight: cw.Weight}
	})
	if err := tx.Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("insert expense categories: %w", err)
	}
	return rows, nil
}
