package bank

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/faria/mony-api/internal/db"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// systemUsername is the service account that never owns income or preferred accounts.
var systemUsername = "admin"

// UserLookup resolves request identities against the users table.
type UserLookup struct{}

func (UserLookup) FindActiveUser(r *http.Request, username string) error {
	var user User
	return db.DB.WithContext(r.Context()).
		Where("username = ? AND is_active = ?", username, true).
		First(&user).Error
}

func excludeSystemUser(q *gorm.DB) *gorm.DB {
	return q.Where("username <> ?", systemUsername)
}

// checkSelectableUser rejects missing users and the system account.
func checkSelectableUser(tx *gorm.DB, id uint) error {
	var user User
	if err := tx.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid("user", CodeDoesNotExist, "invalid pk %d - object does not exist", id)
		}
		return fmt.Errorf("look up user: %w", err)
	}
	if user.Username == systemUsername {
		return invalid("user", CodeDoesNotExist, "invalid pk %d - object does not exist", id)
	}
	return nil
}

type userInput struct {
	Username *string `json:"username"`
	IsActive *bool   `json:"is_active"`
}

func applyUser(_ *gorm.DB, in *userInput, u *User, wr write) error {
	if err := need("username", in.Username, wr); err != nil {
		return err
	}
	if in.Username != nil {
		u.Username = *in.Username
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	} else if wr.Mode == modeCreate {
		u.IsActive = true
	}
	if u.Username == systemUsername {
		return invalid("username", CodeUnique, "a user with that username already exists")
	}
	return checkName("username", u.Username, 150)
}

var users = resource[User, userInput]{
	Order: "username",
	Apply: applyUser,
	Scope: excludeSystemUser,
	Filters: []filter{
		boolExact("is_active", "is_active"),
	},
}

type incomeInput struct {
	User     *uint            `json:"user"`
	Source   *uint            `json:"source"`
	DatePaid *Date            `json:"date_paid"`
	Amount   *decimal.Decimal `json:"amount"`
	IsPreTax *bool            `json:"is_pre_tax"`
	Memo     *string          `json:"memo"`
}

func applyIncome(tx *gorm.DB, in *incomeInput, inc *Income, wr write) error {
	if err := need("user", in.User, wr); err != nil {
		return err
	}
	if err := need("source", in.Source, wr); err != nil {
		return err
	}
	if err := need("date_paid", in.DatePaid, wr); err != nil {
		return err
	}
	if err := need("amount", in.Amount, wr); err != nil {
		return err
	}
	if in.User != nil {
		if err := checkSelectableUser(tx, *in.User); err != nil {
			return err
		}
		inc.UserID = *in.User
	}
	if in.Source != nil {
		if err := checkExists(tx, "source", &Source{}, *in.Source); err != nil {
			return err
		}
		inc.SourceID = *in.Source
	}
	if in.DatePaid != nil {
		inc.DatePaid = in.DatePaid.Time
	}
	if in.Amount != nil {
		if err := checkAmount("amount", *in.Amount); err != nil {
			return err
		}
		inc.Amount = *in.Amount
	}
	if in.IsPreTax != nil {
		inc.IsPreTax = *in.IsPreTax
	}
	if in.Memo != nil {
		inc.Memo = *in.Memo
	}
	if wr.Mode == modeCreate {
		inc.CreatedBy = wr.Actor
	}
	return nil
}

var incomes = resource[Income, incomeInput]{
	Order: "date_paid DESC, id DESC",
	Apply: applyIncome,
	Filters: []filter{
		idExact("user", "user_id"),
		idExact("source", "source_id"),
		dateRange("date_paid", "date_paid"),
	},
}
