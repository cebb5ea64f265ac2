package bank

import (
	"fmt"
	"testing"
	"time"

	"github.com/faria/mony-api/internal/config"
	"github.com/faria/mony-api/internal/db"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory sqlite database, migrates it and installs
// it as db.DB for the duration of the test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	d, err := db.Open(config.Database{
		Driver:   config.DriverSQLite,
		URL:      fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(d))

	prev := db.DB
	db.DB = d
	t.Cleanup(func() {
		db.DB = prev
		if sqlDB, err := d.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return d
}

// fixture is the reference data most tests build on.
type fixture struct {
	Admin, Alice   User
	Source         Source
	Inst           Institution
	Account        Account
	Paytype        Paytype
	Food, Transit  Category
	Other          Category
	Groceries, Gas Tag
	Seller         Seller
	Location       Location
}

func seedFixture(t *testing.T, d *gorm.DB) *fixture {
	t.Helper()

	f := &fixture{
		Admin:     User{Username: "admin", IsActive: true},
		Alice:     User{Username: "alice", IsActive: true},
		Source:    Source{Name: "Acme Corp", Abbrev: "ACME", IsActive: true},
		Inst:      Institution{Name: "First Bank", Abbrev: "FB"},
		Paytype:   Paytype{Name: "credit"},
		Food:      Category{Name: "Food"},
		Transit:   Category{Name: "Transport"},
		Other:     Category{Name: "Other"},
		Groceries: Tag{Name: "groceries"},
		Gas:       Tag{Name: "gas"},
		Seller:    Seller{Name: "Corner Market", IsActive: true},
	}
	for _, m := range []any{
		&f.Admin, &f.Alice, &f.Source, &f.Inst, &f.Paytype,
		&f.Food, &f.Transit, &f.Other, &f.Groceries, &f.Gas, &f.Seller,
	} {
		require.NoError(t, d.Create(m).Error)
	}

	f.Account = Account{InstID: f.Inst.ID, AcctName: "Visa", AcctNumber: "4111111111111234", IsActive: true}
	require.NoError(t, d.Create(&f.Account).Error)

	f.Location = Location{SellerID: f.Seller.ID, Name: "Main St", Rank: DefaultLocationRank}
	require.NoError(t, d.Create(&f.Location).Error)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func (f *fixture) newOrder(t *testing.T, d *gorm.DB, number string, amount string, shipments uint) Order {
	t.Helper()
	o := Order{
		LocationID:   f.Location.ID,
		AccountID:    f.Account.ID,
		PaytypeID:    f.Paytype.ID,
		OrderNumber:  number,
		OrderDate:    day("2024-03-01"),
		Amount:       dec(amount),
		NumShipments: shipments,
		Memo:         "order " + number,
	}
	require.NoError(t, d.Create(&o).Error)
	return o
}

func (f *fixture) newExpense(t *testing.T, d *gorm.DB, amount string) Expense {
	t.Helper()
	e := Expense{
		LocationID: f.Location.ID,
		AccountID:  f.Account.ID,
		PaytypeID:  f.Paytype.ID,
		DatePaid:   day("2024-03-05"),
		Amount:     dec(amount),
		CreatedBy:  "alice",
	}
	require.NoError(t, d.Create(&e).Error)
	return e
}

func countRows(t *testing.T, d *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := d.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
