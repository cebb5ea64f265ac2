package bank

import (
	"net/http"

	"github.com/faria/mony-api/internal/db"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type expenseInput struct {
	Location   *uint            `json:"location"`
	Account    *uint            `json:"account"`
	Paytype    *uint            `json:"paytype"`
	Order      Nullable[uint]   `json:"order"`
	DatePaid   *Date            `json:"date_paid"`
	Amount     *decimal.Decimal `json:"amount"`
	Memo       *string          `json:"memo"`
	CheckNo    Nullable[uint]   `json:"check_no"`
	ShipmentNo Nullable[uint]   `json:"shipment_no"`
	InvoiceID  *string          `json:"invoiceid"`
	Tags       *[]uint          `json:"tags"`
	Categories []CategoryWeight `json:"categories"`
}

// applyExpenseFields copies the fields every kind of expense accepts.
func applyExpenseFields(in *expenseInput, e *Expense, wr write) error {
	if err := need("date_paid", in.DatePaid, wr); err != nil {
		return err
	}
	if err := need("amount", in.Amount, wr); err != nil {
		return err
	}
	if in.DatePaid != nil {
		e.DatePaid = in.DatePaid.Time
	}
	if in.Amount != nil {
		if err := checkAmount("amount", *in.Amount); err != nil {
			return err
		}
		e.Amount = *in.Amount
	}
	if in.Memo != nil {
		e.Memo = *in.Memo
	}
	if in.CheckNo.Set {
		e.CheckNo = in.CheckNo.Value
	}
	if in.InvoiceID != nil {
		e.InvoiceID = *in.InvoiceID
	}
	if wr.Mode == modeCreate {
		e.CreatedBy = wr.Actor
	}
	return checkLength("invoiceid", e.InvoiceID, 32)
}

// applyRegularExpense handles expenses that are not paying for an Order.
func applyRegularExpense(tx *gorm.DB, in *expenseInput, e *Expense, wr write) error {
	if in.Order.Value != nil {
		return invalid("order", CodeNotAllowed, "order expenses must be entered through expense-from-order")
	}
	if e.IsOrder() {
		return invalid("order", CodeNotAllowed, "expense %d pays for order %d, update it through expense-from-order", e.ID, *e.OrderID)
	}
	if in.ShipmentNo.Value != nil {
		return invalid("shipment_no", CodeNotAllowed, "only order expenses have a shipment number")
	}
	if wr.Mode != modeCreate && in.Categories != nil {
		return invalid("categories", CodeReadOnly, "categories are managed through expense-catg after create")
	}
	err := applyPlacement(tx, in.Location, in.Account, in.Paytype, wr,
		&placement{&e.LocationID, &e.AccountID, &e.PaytypeID})
	if err != nil {
		return err
	}
	return applyExpenseFields(in, e, wr)
}

// afterExpense sets tags wholesale and, on create, enters categories.
func afterExpense(tx *gorm.DB, in *expenseInput, e *Expense, wr write) error {
	if in.Tags != nil {
		if err := replaceTags(tx, e, "Tags", *in.Tags); err != nil {
			return err
		}
	}
	if wr.Mode == modeCreate {
		if _, err := EnterCategoryWeights(tx, e.ID, in.Categories); err != nil {
			return err
		}
	}
	return nil
}

var expenseFilters = []filter{
	idExact("account", "account_id"),
	idExact("location", "location_id"),
	idExact("paytype", "paytype_id"),
	idExact("order", "order_id"),
	dateRange("date_paid", "date_paid"),
	idExact("check_no", "check_no"),
	idExact("shipment_no", "shipment_no"),
	textExact("invoiceid", "invoiceid"),
	textIContains("memo__icontains", "memo"),
	idIn("categories", func(q *gorm.DB, ids []uint) *gorm.DB {
		return q.Model(&ExpenseCategory{}).Select("expense_id").Where("category_id IN ?", ids)
	}),
	idIn("tags", linkSubquery("expense_tags", "expense_id", "tag_id")),
}

var expenses = resource[Expense, expenseInput]{
	Order:   "created DESC, id DESC",
	Preload: []string{"Tags", "Categories"},
	Filters: expenseFilters,
	Apply:   applyRegularExpense,
	After:   afterExpense,
}

// applyOrderExpense updates an expense created by the completion workflow.
// Location, account, paytype and order are fixed by the order.
func applyOrderExpense(tx *gorm.DB, in *expenseInput, e *Expense, wr write) error {
	if !e.IsOrder() {
		return invalid("order", CodeNotAllowed, "expense %d does not pay for an order", e.ID)
	}
	if in.Order.Value == nil {
		return invalid("order", CodeRequired, "this field is required")
	}
	if *in.Order.Value != *e.OrderID {
		return invalid("order", CodeReadOnly, "expense %d belongs to order %d", e.ID, *e.OrderID)
	}
	if in.Categories != nil {
		return invalid("categories", CodeReadOnly, "categories are managed through expense-catg after create")
	}
	if in.ShipmentNo.Set {
		if in.ShipmentNo.Value != nil {
			var order Order
			if err := tx.Select("id", "num_shipments").First(&order, *e.OrderID).Error; err != nil {
				return err
			}
			n := *in.ShipmentNo.Value
			if n < 1 {
				return invalid("shipment_no", CodeMinValue, "ensure this value is greater than or equal to 1")
			}
			if n > order.NumShipments {
				return invalid("shipment_no", CodeMaxValue,
					"shipment_no %d greater than number of order shipments %d", n, order.NumShipments)
			}
		}
		e.ShipmentNo = in.ShipmentNo.Value
	}
	return applyExpenseFields(in, e, wr)
}

var orderExpenses = resource[Expense, expenseInput]{
	Preload: []string{"Tags", "Categories"},
	Apply:   applyOrderExpense,
	After:   afterExpense,
}

type completeInput struct {
	Order      *uint            `json:"order"`
	DatePaid   *Date            `json:"date_paid"`
	Amount     *decimal.Decimal `json:"amount"`
	Memo       *string          `json:"memo"`
	ShipmentNo *uint            `json:"shipment_no"`
	Tags       []uint           `json:"tags"`
	Categories []CategoryWeight `json:"categories"`
}

func decodeComplete(w http.ResponseWriter, r *http.Request) (*completeInput, error) {
	var in completeInput
	if err := decodeJSON(w, r, &in); err != nil {
		return nil, err
	}
	wr := write{Mode: modeCreate}
	if err := need("order", in.Order, wr); err != nil {
		return nil, err
	}
	if err := need("date_paid", in.DatePaid, wr); err != nil {
		return nil, err
	}
	return &in, nil
}

// CreateExpenseFromOrder completes a whole order.
func CreateExpenseFromOrder(w http.ResponseWriter, r *http.Request) {
	in, err := decodeComplete(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	expense, err := CompleteOrder(r.Context(), db.DB, CompleteOrderInput{
		OrderID:    *in.Order,
		DatePaid:   in.DatePaid.Time,
		CreatedBy:  actor(r),
		Amount:     in.Amount,
		Memo:       in.Memo,
		Tags:       in.Tags,
		Categories: in.Categories,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

// CreateExpenseFromShipment completes one shipment of a multi-shipment order.
func CreateExpenseFromShipment(w http.ResponseWriter, r *http.Request) {
	in, err := decodeComplete(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	wr := write{Mode: modeCreate}
	if err := need("shipment_no", in.ShipmentNo, wr); err != nil {
		writeError(w, err)
		return
	}
	if err := need("amount", in.Amount, wr); err != nil {
		writeError(w, err)
		return
	}
	memo := ""
	if in.Memo != nil {
		memo = *in.Memo
	}

	expense, err := CompleteShipment(r.Context(), db.DB, CompleteShipmentInput{
		OrderID:    *in.Order,
		DatePaid:   in.DatePaid.Time,
		CreatedBy:  actor(r),
		Amount:     *in.Amount,
		Memo:       memo,
		ShipmentNo: *in.ShipmentNo,
		Tags:       in.Tags,
		Categories: in.Categories,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}
