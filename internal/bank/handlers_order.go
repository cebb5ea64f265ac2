package bank

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// orderInput has no is_complete: only the completion workflow sets it.
type orderInput struct {
	Location     *uint            `json:"location"`
	Account      *uint            `json:"account"`
	Paytype      *uint            `json:"paytype"`
	OrderNumber  *string          `json:"order_number"`
	OrderDate    *Date            `json:"order_date"`
	Amount       *decimal.Decimal `json:"amount"`
	IsCancelled  *bool            `json:"is_cancelled"`
	NumShipments *uint            `json:"num_shipments"`
	Memo         *string          `json:"memo"`
}

// applyPlacement sets the location/account/paytype triple shared by orders and expenses.
func applyPlacement(tx *gorm.DB, location, account, paytype *uint, wr write, dst *placement) error {
	if err := need("location", location, wr); err != nil {
		return err
	}
	if err := need("account", account, wr); err != nil {
		return err
	}
	if err := need("paytype", paytype, wr); err != nil {
		return err
	}
	if location != nil {
		if err := checkExists(tx, "location", &Location{}, *location); err != nil {
			return err
		}
		*dst.location = *location
	}
	if account != nil {
		if err := checkExists(tx, "account", &Account{}, *account); err != nil {
			return err
		}
		*dst.account = *account
	}
	if paytype != nil {
		if err := checkExists(tx, "paytype", &Paytype{}, *paytype); err != nil {
			return err
		}
		*dst.paytype = *paytype
	}
	return nil
}

type placement struct {
	location, account, paytype *uint
}

func applyOrder(tx *gorm.DB, in *orderInput, o *Order, wr write) error {
	var locked *Order
	if wr.Mode != modeCreate {
		var err error
		if locked, err = lockOrder(tx, o.ID); err != nil {
			return err
		}
		// Save writes every column; keep a concurrent completion.
		o.IsComplete = locked.IsComplete
	}
	err := applyPlacement(tx, in.Location, in.Account, in.Paytype, wr,
		&placement{&o.LocationID, &o.AccountID, &o.PaytypeID})
	if err != nil {
		return err
	}
	if err := need("order_number", in.OrderNumber, wr); err != nil {
		return err
	}
	if err := need("order_date", in.OrderDate, wr); err != nil {
		return err
	}
	if err := need("amount", in.Amount, wr); err != nil {
		return err
	}
	if in.OrderNumber != nil {
		o.OrderNumber = *in.OrderNumber
	}
	if in.OrderDate != nil {
		o.OrderDate = in.OrderDate.Time
	}
	if in.Amount != nil {
		if err := checkAmount("amount", *in.Amount); err != nil {
			return err
		}
		o.Amount = *in.Amount
	}
	if in.IsCancelled != nil {
		o.IsCancelled = *in.IsCancelled
	}
	if in.NumShipments != nil {
		if locked != nil && *in.NumShipments != locked.NumShipments {
			if err := checkShipmentCount(tx, locked, *in.NumShipments); err != nil {
				return err
			}
		}
		o.NumShipments = *in.NumShipments
	} else if wr.Mode == modeCreate {
		o.NumShipments = 1
	}
	if o.NumShipments < 1 {
		return invalid("num_shipments", CodeMinValue, "ensure this value is greater than or equal to 1")
	}
	if in.Memo != nil {
		o.Memo = *in.Memo
	}
	return checkName("order_number", o.OrderNumber, 64)
}

// checkShipmentCount keeps room for one more shipment beyond those already
// recorded, so the order can still complete.
func checkShipmentCount(tx *gorm.DB, locked *Order, n uint) error {
	orderID := locked.ID
	if locked.IsComplete {
		return notAllowed("num_shipments", CodeAlreadyComplete, "order %d is already complete", orderID)
	}
	var shipped struct {
		Count       int64
		MaxShipment uint
	}
	if err := tx.Model(&Expense{}).
		Select("COUNT(*) AS count, COALESCE(MAX(shipment_no), 0) AS max_shipment").
		Where("order_id = ?", orderID).
		Scan(&shipped).Error; err != nil {
		return fmt.Errorf("count order %d shipments: %w", orderID, err)
	}
	if shipped.Count > 0 && (int64(n) <= shipped.Count || n < shipped.MaxShipment) {
		return invalid("num_shipments", CodeMinValue,
			"order %d already has %d shipments recorded, up to shipment %d", orderID, shipped.Count, shipped.MaxShipment)
	}
	return nil
}

var orders = resource[Order, orderInput]{
	Order: "modified DESC, id DESC",
	Apply: applyOrder,
	Filters: []filter{
		idExact("account", "account_id"),
		idExact("location", "location_id"),
		textExact("order_number", "order_number"),
		boolExact("is_complete", "is_complete"),
		dateRange("order_date", "order_date"),
	},
}
