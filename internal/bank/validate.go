package bank

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxAmount bounds numeric(7,2) columns.
var maxAmount = decimal.NewFromInt(100000)

func checkAmount(field string, d decimal.Decimal) error {
	if !d.Equal(d.Round(2)) {
		return invalid(field, CodeInvalid, "ensure that there are no more than 2 decimal places")
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return invalid(field, CodeMaxValue, "ensure that there are no more than 5 digits before the decimal point")
	}
	return nil
}

func checkRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, CodeRequired, "this field may not be blank")
	}
	return nil
}

func checkLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return invalid(field, CodeMaxLength, "ensure this field has no more than %d characters", max)
	}
	return nil
}

// checkName is the common required-and-bounded text check.
func checkName(field, value string, max int) error {
	if err := checkRequired(field, value); err != nil {
		return err
	}
	return checkLength(field, value, max)
}

func checkURL(field, value string) error {
	if value == "" {
		return nil
	}
	if err := checkLength(field, value, 1000); err != nil {
		return err
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(field, CodeInvalid, "enter a valid URL")
	}
	return nil
}

// checkExists verifies that the row referenced by field exists.
func checkExists(tx *gorm.DB, field string, model any, id uint) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("look up %s: %w", field, err)
	}
	if n == 0 {
		return invalid(field, CodeDoesNotExist, "invalid pk %d - object does not exist", id)
	}
	return nil
}

// findTags loads the tags named by ids, failing when any is missing.
func findTags(tx *gorm.DB, ids []uint) ([]Tag, error) {
	ids = lo.Uniq(ids)
	tags := []Tag{}
	if len(ids) == 0 {
		return tags, nil
	}
	if err := tx.Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("look up tags: %w", err)
	}
	if missing, _ := lo.Difference(ids, tagIDs(tags)); len(missing) > 0 {
		return nil, invalid("tags", CodeDoesNotExist, "invalid pk %d - object does not exist", missing[0])
	}
	return tags, nil
}

// replaceTags swaps an owner's tag set under association wholesale.
func replaceTags(tx *gorm.DB, owner any, association string, ids []uint) error {
	tags, err := findTags(tx, ids)
	if err != nil {
		return err
	}
	assoc := tx.Model(owner).Association(association)
	if len(tags) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(tags)
	}
	if err != nil {
		return fmt.Errorf("replace %s: %w", strings.ToLower(association), err)
	}
	return nil
}
