package bank

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/faria/mony-api/internal/db"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CompleteOrderInput pays for a whole order with a single expense.
// Amount and Memo default to the order's own when nil.
type CompleteOrderInput struct {
	OrderID    uint
	DatePaid   time.Time
	CreatedBy  string
	Amount     *decimal.Decimal
	Memo       *string
	Tags       []uint
	Categories []CategoryWeight
}

// CompleteShipmentInput pays for one shipment of a multi-shipment order.
type CompleteShipmentInput struct {
	OrderID    uint
	DatePaid   time.Time
	CreatedBy  string
	Amount     decimal.Decimal
	Memo       string
	ShipmentNo uint
	Tags       []uint
	Categories []CategoryWeight
}

// lockRow reads the row for the rest of the transaction. Postgres takes a
// row lock; sqlite serializes writers on its own.
func lockRow[T any](tx *gorm.DB, field string, id uint) (*T, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row T
	if err := q.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid(field, CodeDoesNotExist, "invalid pk %d - object does not exist", id)
		}
		return nil, fmt.Errorf("load %s %d: %w", field, id, err)
	}
	return &row, nil
}

func lockOrder(tx *gorm.DB, id uint) (*Order, error) {
	return lockRow[Order](tx, "order", id)
}

// checkOpen reports completion before cancellation.
func checkOpen(order *Order) error {
	if order.IsComplete {
		return notAllowed("order", CodeAlreadyComplete, "order %d is already complete", order.ID)
	}
	if order.IsCancelled {
		return notAllowed("order", CodeCancelled, "order %d is cancelled", order.ID)
	}
	return nil
}

// markComplete flips is_complete only if it is still false.
func markComplete(tx *gorm.DB, orderID uint) error {
	res := tx.Model(&Order{}).
		Where("id = ? AND is_complete = ?", orderID, false).
		Update("is_complete", true)
	if res.Error != nil {
		return fmt.Errorf("mark order %d complete: %w", orderID, res.Error)
	}
	if res.RowsAffected != 1 {
		return notAllowed("order", CodeAlreadyComplete, "order %d is already complete", orderID)
	}
	return nil
}

// createOrderExpense inserts the expense then applies tags and categories.
func createOrderExpense(tx *gorm.DB, expense *Expense, tags []uint, catgs []CategoryWeight) error {
	if err := tx.Omit("Tags", "Categories").Create(expense).Error; err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	if len(tags) > 0 {
		if err := replaceTags(tx, expense, "Tags", tags); err != nil {
			return err
		}
	}
	if _, err := EnterCategoryWeights(tx, expense.ID, catgs); err != nil {
		return err
	}
	return nil
}

func expenseFor(order *Order, datePaid time.Time, createdBy string, amount decimal.Decimal, memo string) *Expense {
	orderID := order.ID
	return &Expense{
		LocationID: order.LocationID,
		AccountID:  order.AccountID,
		PaytypeID:  order.PaytypeID,
		OrderID:    &orderID,
		DatePaid:   datePaid,
		Amount:     amount,
		Memo:       memo,
		CreatedBy:  createdBy,
	}
}

// CompleteOrder turns an open order into its paying expense and marks the
// order complete, all in one transaction.
func CompleteOrder(ctx context.Context, d *gorm.DB, in CompleteOrderInput) (*Expense, error) {
	if in.Amount != nil {
		if err := checkAmount("amount", *in.Amount); err != nil {
			return nil, err
		}
	}

	var expenseID uint
	err := db.WithRetry(ctx, d, func(tx *gorm.DB) error {
		order, err := lockOrder(tx, in.OrderID)
		if err != nil {
			return err
		}
		if err := checkOpen(order); err != nil {
			return err
		}

		amount, memo := order.Amount, order.Memo
		if in.Amount != nil {
			amount = *in.Amount
		}
		if in.Memo != nil {
			memo = *in.Memo
		}

		expense := expenseFor(order, in.DatePaid, in.CreatedBy, amount, memo)
		if err := createOrderExpense(tx, expense, in.Tags, in.Categories); err != nil {
			return err
		}
		if err := markComplete(tx, order.ID); err != nil {
			return err
		}
		expenseID = expense.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[bank] order %d completed by %s with expense %d", in.OrderID, in.CreatedBy, expenseID)
	return loadExpense(d.WithContext(ctx), expenseID)
}

// CompleteShipment records the expense for one shipment. The order is marked
// complete once it has one expense per shipment.
func CompleteShipment(ctx context.Context, d *gorm.DB, in CompleteShipmentInput) (*Expense, error) {
	if err := checkAmount("amount", in.Amount); err != nil {
		return nil, err
	}

	var expenseID uint
	var completed bool
	err := db.WithRetry(ctx, d, func(tx *gorm.DB) error {
		completed = false

		order, err := lockOrder(tx, in.OrderID)
		if err != nil {
			return err
		}
		if err := checkOpen(order); err != nil {
			return err
		}
		if order.NumShipments < 2 {
			return notAllowed("order", CodeSingleShipment,
				"order %d has a single shipment, complete the whole order instead", order.ID)
		}
		if in.ShipmentNo < 1 {
			return invalid("shipment_no", CodeMinValue, "ensure this value is greater than or equal to 1")
		}
		if in.ShipmentNo > order.NumShipments {
			return invalid("shipment_no", CodeMaxValue,
				"shipment_no %d greater than number of order shipments %d", in.ShipmentNo, order.NumShipments)
		}
		if in.Amount.GreaterThan(order.Amount) {
			return invalid("amount", CodeExceedsOrder,
				"amount %s greater than order amount %s", in.Amount, order.Amount)
		}

		var dup int64
		if err := tx.Model(&Expense{}).
			Where("order_id = ? AND shipment_no = ?", order.ID, in.ShipmentNo).
			Count(&dup).Error; err != nil {
			return fmt.Errorf("count shipment %d: %w", in.ShipmentNo, err)
		}
		if dup > 0 {
			return invalid("shipment_no", CodeDuplicate,
				"shipment %d of order %d is already recorded", in.ShipmentNo, order.ID)
		}

		shipmentNo := in.ShipmentNo
		expense := expenseFor(order, in.DatePaid, in.CreatedBy, in.Amount, in.Memo)
		expense.ShipmentNo = &shipmentNo
		if err := createOrderExpense(tx, expense, in.Tags, in.Categories); err != nil {
			return err
		}
		expenseID = expense.ID

		var shipped []Expense
		if err := tx.Select("id", "amount").Where("order_id = ?", order.ID).Find(&shipped).Error; err != nil {
			return fmt.Errorf("count order %d expenses: %w", order.ID, err)
		}
		if uint(len(shipped)) != order.NumShipments {
			return nil
		}

		total := decimal.Zero
		for _, e := range shipped {
			total = total.Add(e.Amount)
		}
		if !total.Equal(order.Amount) {
			log.Printf("[bank] warning: order %d shipments total %s, order amount is %s", order.ID, total, order.Amount)
		}
		if err := markComplete(tx, order.ID); err != nil {
			return err
		}
		completed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed {
		log.Printf("[bank] order %d completed by %s with shipment %d", in.OrderID, in.CreatedBy, in.ShipmentNo)
	}
	return loadExpense(d.WithContext(ctx), expenseID)
}

func loadExpense(tx *gorm.DB, id uint) (*Expense, error) {
	var expense Expense
	if err := tx.Preload("Tags").Preload("Categories").First(&expense, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load expense %d: %w", id, err)
	}
	return &expense, nil
}
