package bank

import (
	"encoding/json"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// TaxAdjustedPct scales a pre-tax income into its take-home estimate.
var TaxAdjustedPct = decimal.RequireFromString("0.7")

func init() {
	// Money and weights go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// User is a person whose income, preferred accounts and expenses are tracked
type User struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Username string    `gorm:"size:150;not null;uniqueIndex:idx_users_username" json:"username"`
	IsActive bool      `gorm:"not null" json:"is_active"`
	Created  time.Time `gorm:"autoCreateTime" json:"created"`
	Modified time.Time `gorm:"autoUpdateTime" json:"modified"`
}

// Source is an income source such as an employer
type Source struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Name     string    `gorm:"size:100;not null;uniqueIndex:idx_sources_name" json:"name"`
	Abbrev   string    `gorm:"size:20;not null;uniqueIndex:idx_sources_abbrev" json:"abbrev"`
	IsActive bool      `gorm:"not null" json:"is_active"`
	Created  time.Time `gorm:"autoCreateTime" json:"created"`
	Modified time.Time `gorm:"autoUpdateTime" json:"modified"`
}

type Income struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;index;uniqueIndex:idx_incomes_user_source_date" json:"user"`
	User      *User           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	SourceID  uint            `gorm:"not null;index;uniqueIndex:idx_incomes_user_source_date" json:"source"`
	Source    *Source         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	DatePaid  time.Time       `gorm:"not null;uniqueIndex:idx_incomes_user_source_date" json:"date_paid"`
	Amount    decimal.Decimal `gorm:"type:numeric(7,2);not null" json:"amount"`
	IsPreTax  bool            `gorm:"not null" json:"is_pre_tax"`
	Memo      string          `gorm:"type:text;not null" json:"memo"`
	CreatedBy string          `gorm:"size:150;not null" json:"created_by"`
	Created   time.Time       `gorm:"autoCreateTime" json:"created"`
	Modified  time.Time       `gorm:"autoUpdateTime" json:"modified"`
}

// AdjustedAmount is the amount scaled by TaxAdjustedPct when the income is pre-tax.
func (i Income) AdjustedAmount() decimal.Decimal {
	if i.IsPreTax {
		return i.Amount.Mul(TaxAdjustedPct).Round(2)
	}
	return i.Amount
}

func (i Income) MarshalJSON() ([]byte, error) {
	type alias Income
	return json.Marshal(struct {
		alias
		AdjustedAmount decimal.Decimal `json:"adjusted_amount"`
	}{alias(i), i.AdjustedAmount()})
}

// Institution is a bank or card issuer holding accounts
type Institution struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Name     string    `gorm:"size:100;not null;uniqueIndex:idx_institutions_name" json:"name"`
	Abbrev   string    `gorm:"size:20;not null;uniqueIndex:idx_institutions_abbrev" json:"abbrev"`
	Created  time.Time `gorm:"autoCreateTime" json:"created"`
	Modified time.Time `gorm:"autoUpdateTime" json:"modified"`
}

type Account struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	InstID     uint         `gorm:"not null;index;uniqueIndex:idx_accounts_inst_number" json:"inst"`
	Inst       *Institution `gorm:"foreignKey:InstID;constraint:OnDelete:CASCADE" json:"-"`
	AcctName   string       `gorm:"size:80;not null" json:"acct_name"`
	AcctNumber string       `gorm:"size:60;not null;uniqueIndex:idx_accounts_inst_number" json:"acct_number"`
	IsActive   bool         `gorm:"not null" json:"is_active"`
	Memo       string       `gorm:"type:text;not null" json:"memo"`
	Created    time.Time    `gorm:"autoCreateTime" json:"created"`
	Modified   time.Time    `gorm:"autoUpdateTime" json:"modified"`
}

// Last4 returns the trailing four characters of the account number.
func (a Account) Last4() string {
	if len(a.AcctNumber) <= 4 {
		return a.AcctNumber
	}
	return a.AcctNumber[len(a.AcctNumber)-4:]
}

func (a Account) MarshalJSON() ([]byte, error) {
	type alias Account
	return json.Marshal(struct {
		alias
		Last4 string `json:"last4"`
	}{alias(a), a.Last4()})
}

// Paytype is a payment method (credit, debit, check, cash, ...)
type Paytype struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Name     string    `gorm:"column:paytype;size:20;not null;uniqueIndex:idx_paytypes_paytype" json:"paytype"`
	Created  time.Time `gorm:"autoCreateTime" json:"created"`
	Modified time.Time `gorm:"autoUpdateTime" json:"modified"`
}

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"column:catg;size:20;not null;uniqueIndex:idx_categories_catg" json:"catg"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Created     time.Time `gorm:"autoCreateTime" json:"created"`
	Modified    time.Time `gorm:"autoUpdateTime" json:"modified"`
}

type Tag struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Name     string    `gorm:"column:tag;size:20;not null;uniqueIndex:idx_tags_tag" json:"tag"`
	Created  time.Time `gorm:"autoCreateTime" json:"created"`
	Modified time.Time `gorm:"autoUpdateTime" json:"modified"`
}

func tagIDs(tags []Tag) []uint {
	return lo.Map(tags, func(t Tag, _ int) uint { return t.ID })
}

// Seller is a merchant. AutoCatg and AutoTags are applied to new expenses by clients.
type Seller struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"column:seller_name;size:60;not null;uniqueIndex:idx_sellers_seller_name" json:"seller_name"`
	Website    string    `gorm:"size:1000;not null" json:"website"`
	IsActive   bool      `gorm:"not null" json:"is_active"`
	Memo       string    `gorm:"type:text;not null" json:"memo"`
	AutoCatgID *uint     `gorm:"index" json:"auto_catg"`
	AutoCatg   *Category `gorm:"foreignKey:AutoCatgID;constraint:OnDelete:SET NULL" json:"-"`
	AutoTags   []Tag     `gorm:"many2many:seller_auto_tags;constraint:OnDelete:CASCADE" json:"-"`
	Created    time.Time `gorm:"autoCreateTime" json:"created"`
	Modified   time.Time `gorm:"autoUpdateTime" json:"modified"`

	PrefAccounts []PreferredAccount `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE" json:"pref_accounts"`
}

func (s Seller) MarshalJSON() ([]byte, error) {
	type alias Seller
	prefs := s.PrefAccounts
	if prefs == nil {
		prefs = []PreferredAccount{}
	}
	return json.Marshal(struct {
		alias
		AutoTags     []uint             `json:"auto_tags"`
		PrefAccounts []PreferredAccount `json:"pref_accounts"`
	}{alias(s), tagIDs(s.AutoTags), prefs})
}

// PreferredAccount is the default account/paytype a user pays a seller with.
type PreferredAccount struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	SellerID  uint     `gorm:"not null;index;uniqueIndex:idx_pref_accounts_acct_seller_user" json:"seller"`
	AccountID uint     `gorm:"not null;index;uniqueIndex:idx_pref_accounts_acct_seller_user" json:"account"`
	Account   *Account `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PaytypeID uint     `gorm:"not null;index" json:"paytype"`
	Paytype   *Paytype `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint     `gorm:"not null;index;uniqueIndex:idx_pref_accounts_acct_seller_user" json:"user"`
	User      *User    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Location struct {
	ID       uint                `gorm:"primaryKey" json:"id"`
	SellerID uint                `gorm:"not null;index;uniqueIndex:idx_locations_seller_name" json:"seller"`
	Seller   *Seller             `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Name     string              `gorm:"column:loc_name;size:60;not null;uniqueIndex:idx_locations_seller_name" json:"loc_name"`
	Address  string              `gorm:"column:loc_address;size:100;not null" json:"loc_address"`
	Lat      decimal.NullDecimal `gorm:"type:numeric(8,6)" json:"lat"`
	Lng      decimal.NullDecimal `gorm:"type:numeric(9,6)" json:"lng"`
	Rank     uint                `gorm:"not null" json:"rank"`
	Created  time.Time           `gorm:"autoCreateTime" json:"created"`
	Modified time.Time           `gorm:"autoUpdateTime" json:"modified"`
}

// DefaultLocationRank orders new locations behind hand-ranked ones.
const DefaultLocationRank = 100

// Order is a placed purchase that is paid for by one expense per shipment.
// IsComplete only ever flips to true inside CompleteOrder or CompleteShipment.
type Order struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	LocationID   uint            `gorm:"not null;index;uniqueIndex:idx_orders_location_number" json:"location"`
	Location     *Location       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	AccountID    uint            `gorm:"not null;index" json:"account"`
	Account      *Account        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PaytypeID    uint            `gorm:"not null;index" json:"paytype"`
	Paytype      *Paytype        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	OrderNumber  string          `gorm:"size:64;not null;uniqueIndex:idx_orders_location_number" json:"order_number"`
	OrderDate    time.Time       `gorm:"not null;index" json:"order_date"`
	Amount       decimal.Decimal `gorm:"type:numeric(7,2);not null" json:"amount"`
	IsComplete   bool            `gorm:"not null;index" json:"is_complete"`
	IsCancelled  bool            `gorm:"not null" json:"is_cancelled"`
	NumShipments uint            `gorm:"not null" json:"num_shipments"`
	Memo         string          `gorm:"type:text;not null" json:"memo"`
	Created      time.Time       `gorm:"autoCreateTime" json:"created"`
	Modified     time.Time       `gorm:"autoUpdateTime" json:"modified"`
}

type Expense struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	LocationID uint            `gorm:"not null;index" json:"location"`
	Location   *Location       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	AccountID  uint            `gorm:"not null;index" json:"account"`
	Account    *Account        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PaytypeID  uint            `gorm:"not null;index" json:"paytype"`
	Paytype    *Paytype        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	OrderID    *uint           `gorm:"index" json:"order"`
	Order      *Order          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	DatePaid   time.Time       `gorm:"not null;index" json:"date_paid"`
	Amount     decimal.Decimal `gorm:"type:numeric(7,2);not null" json:"amount"`
	Memo       string          `gorm:"type:text;not null" json:"memo"`
	CheckNo    *uint           `json:"check_no"`
	ShipmentNo *uint           `json:"shipment_no"`
	// InvoiceID tracks a seller's order id for expenses entered without an Order.
	InvoiceID string    `gorm:"column:invoiceid;size:32;not null" json:"invoiceid"`
	CreatedBy string    `gorm:"size:150;not null" json:"created_by"`
	Tags      []Tag     `gorm:"many2many:expense_tags;constraint:OnDelete:CASCADE" json:"-"`
	Created   time.Time `gorm:"autoCreateTime;index" json:"created"`
	Modified  time.Time `gorm:"autoUpdateTime" json:"modified"`

	Categories []ExpenseCategory `gorm:"foreignKey:ExpenseID;constraint:OnDelete:CASCADE" json:"categories"`
}

// IsOrder reports whether the expense pays for an Order.
func (e Expense) IsOrder() bool {
	return e.OrderID != nil
}

func (e Expense) MarshalJSON() ([]byte, error) {
	type alias Expense
	catgs := e.Categories
	if catgs == nil {
		catgs = []ExpenseCategory{}
	}
	return json.Marshal(struct {
		alias
		Tags       []uint            `json:"tags"`
		Categories []ExpenseCategory `json:"categories"`
	}{alias(e), tagIDs(e.Tags), catgs})
}

// ExpenseCategory assigns a fraction of an expense to a category.
type ExpenseCategory struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ExpenseID  uint            `gorm:"not null;index;uniqueIndex:idx_expense_categories_expense_catg" json:"expense"`
	CategoryID uint            `gorm:"not null;index;uniqueIndex:idx_expense_categories_expense_catg" json:"category"`
	Category   *Category       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Weight     decimal.Decimal `gorm:"type:numeric(3,2);not null" json:"weight"`
}

// allModels lists every bank table for AutoMigrate.
var allModels = []any{
	&User{},
	&Source{},
	&Income{},
	&Institution{},
	&Account{},
	&Paytype{},
	&Category{},
	&Tag{},
	&Seller{},
	&PreferredAccount{},
	&Location{},
	&Order{},
	&Expense{},
	&ExpenseCategory{},
}
