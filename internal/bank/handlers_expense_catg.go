package bank

import (
	"fmt"
	"net/http"

	"github.com/faria/mony-api/internal/db"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type expenseCatgInput struct {
	Expense  *uint            `json:"expense"`
	Category *uint            `json:"category"`
	Weight   *decimal.Decimal `json:"weight"`
}

// applyExpenseCatgWeight only changes the weight. The new weight plus the
// expense's other weights must stay within 1.
func applyExpenseCatgWeight(tx *gorm.DB, in *expenseCatgInput, ec *ExpenseCategory, wr write) error {
	if err := need("weight", in.Weight, wr); err != nil {
		return err
	}
	if in.Expense != nil && *in.Expense != ec.ExpenseID {
		return invalid("expense", CodeReadOnly, "expense cannot be changed")
	}
	if in.Category != nil && *in.Category != ec.CategoryID {
		return invalid("category", CodeReadOnly, "category cannot be changed")
	}
	if in.Weight != nil {
		if !validWeight(*in.Weight) {
			return invalid("weight", CodeInvalid, "weight must be between 0 and 1 with at most 2 decimal places")
		}
		if err := checkWeightSum(tx, ec, *in.Weight); err != nil {
			return err
		}
		ec.Weight = *in.Weight
	}
	return nil
}

func checkWeightSum(tx *gorm.DB, ec *ExpenseCategory, weight decimal.Decimal) error {
	if _, err := lockRow[Expense](tx, "expense", ec.ExpenseID); err != nil {
		return err
	}
	var others []decimal.Decimal
	if err := tx.Model(&ExpenseCategory{}).
		Where("expense_id = ? AND id <> ?", ec.ExpenseID, ec.ID).
		Pluck("weight", &others).Error; err != nil {
		return fmt.Errorf("load expense %d weights: %w", ec.ExpenseID, err)
	}
	total := decimal.Sum(weight, others...)
	if total.GreaterThan(maxWeight) {
		return invalid("weight", CodeWeightSum, "category weights sum to %s, must not exceed 1", total)
	}
	return nil
}

var expenseCatgs = resource[ExpenseCategory, expenseCatgInput]{
	Order: "id",
	Apply: applyExpenseCatgWeight,
	Filters: []filter{
		idExact("expense", "expense_id"),
		idExact("category", "category_id"),
	},
}

// CreateExpenseCategory adds one category to an expense through the ledger.
func CreateExpenseCategory(w http.ResponseWriter, r *http.Request) {
	var in expenseCatgInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	wr := write{Mode: modeCreate}
	for _, check := range []error{
		need("expense", in.Expense, wr),
		need("category", in.Category, wr),
		need("weight", in.Weight, wr),
	} {
		if check != nil {
			writeError(w, check)
			return
		}
	}

	var created []ExpenseCategory
	err := db.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = EnterCategoryWeights(tx, *in.Expense, []CategoryWeight{
			{Category: *in.Category, Weight: *in.Weight},
		})
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created[0])
}
