package bank

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type locationInput struct {
	Seller  *uint                     `json:"seller"`
	Name    *string                   `json:"loc_name"`
	Address *string                   `json:"loc_address"`
	Lat     Nullable[decimal.Decimal] `json:"lat"`
	Lng     Nullable[decimal.Decimal] `json:"lng"`
	Rank    *uint                     `json:"rank"`
}

var (
	maxLat = decimal.NewFromInt(90)
	maxLng = decimal.NewFromInt(180)
)

func nullDecimal(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*v)
}

func checkCoord(field string, v decimal.NullDecimal, bound decimal.Decimal) error {
	if !v.Valid {
		return nil
	}
	if !v.Decimal.Equal(v.Decimal.Round(6)) {
		return invalid(field, CodeInvalid, "ensure that there are no more than 6 decimal places")
	}
	if v.Decimal.Abs().GreaterThan(bound) {
		return invalid(field, CodeMaxValue, "ensure this value is between -%s and %s", bound, bound)
	}
	return nil
}

// applyLocationFields copies everything but the seller.
func applyLocationFields(in *locationInput, loc *Location, wr write) error {
	if err := need("loc_name", in.Name, wr); err != nil {
		return err
	}
	if in.Name != nil {
		loc.Name = *in.Name
	}
	if in.Address != nil {
		loc.Address = *in.Address
	}
	if in.Lat.Set {
		loc.Lat = nullDecimal(in.Lat.Value)
	}
	if in.Lng.Set {
		loc.Lng = nullDecimal(in.Lng.Value)
	}
	if in.Rank != nil {
		loc.Rank = *in.Rank
	} else if wr.Mode == modeCreate {
		loc.Rank = DefaultLocationRank
	}
	if err := checkName("loc_name", loc.Name, 60); err != nil {
		return err
	}
	if err := checkLength("loc_address", loc.Address, 100); err != nil {
		return err
	}
	if err := checkCoord("lat", loc.Lat, maxLat); err != nil {
		return err
	}
	return checkCoord("lng", loc.Lng, maxLng)
}

func applyLocation(tx *gorm.DB, in *locationInput, loc *Location, wr write) error {
	// The seller is fixed once the location exists.
	if wr.Mode == modeCreate {
		if in.Seller == nil {
			return invalid("seller", CodeRequired, "this field is required")
		}
		if err := checkExists(tx, "seller", &Seller{}, *in.Seller); err != nil {
			return err
		}
		loc.SellerID = *in.Seller
	}
	return applyLocationFields(in, loc, wr)
}

var locations = resource[Location, locationInput]{
	Order: "rank, seller_id, loc_name",
	Apply: applyLocation,
	Filters: []filter{
		idExact("seller", "seller_id"),
		textExact("loc_name", "loc_name"),
		idExact("rank", "rank"),
	},
}

type prefAccountInput struct {
	Seller  *uint `json:"seller"`
	Account *uint `json:"account"`
	Paytype *uint `json:"paytype"`
	User    *uint `json:"user"`
}

// applyPrefAccountFields copies everything but the seller.
func applyPrefAccountFields(tx *gorm.DB, in *prefAccountInput, p *PreferredAccount, wr write) error {
	if err := need("account", in.Account, wr); err != nil {
		return err
	}
	if err := need("paytype", in.Paytype, wr); err != nil {
		return err
	}
	if err := need("user", in.User, wr); err != nil {
		return err
	}
	if in.Account != nil {
		if err := checkExists(tx, "account", &Account{}, *in.Account); err != nil {
			return err
		}
		p.AccountID = *in.Account
	}
	if in.Paytype != nil {
		if err := checkExists(tx, "paytype", &Paytype{}, *in.Paytype); err != nil {
			return err
		}
		p.PaytypeID = *in.Paytype
	}
	if in.User != nil {
		if err := checkSelectableUser(tx, *in.User); err != nil {
			return err
		}
		p.UserID = *in.User
	}
	return nil
}

func applyPrefAccount(tx *gorm.DB, in *prefAccountInput, p *PreferredAccount, wr write) error {
	if wr.Mode == modeCreate {
		if in.Seller == nil {
			return invalid("seller", CodeRequired, "this field is required")
		}
		if err := checkExists(tx, "seller", &Seller{}, *in.Seller); err != nil {
			return err
		}
		p.SellerID = *in.Seller
	}
	return applyPrefAccountFields(tx, in, p, wr)
}

var prefAccounts = resource[PreferredAccount, prefAccountInput]{
	Order: "seller_id, id",
	Apply: applyPrefAccount,
	Filters: []filter{
		idExact("account", "account_id"),
		idExact("seller", "seller_id"),
		idExact("user", "user_id"),
	},
}

type sellerInput struct {
	Name     *string        `json:"seller_name"`
	Website  *string        `json:"website"`
	IsActive *bool          `json:"is_active"`
	Memo     *string        `json:"memo"`
	AutoCatg Nullable[uint] `json:"auto_catg"`
	AutoTags *[]uint        `json:"auto_tags"`

	// Only read on create.
	Location     *locationInput     `json:"location"`
	PrefAccounts []prefAccountInput `json:"pref_accounts"`
}

func applySeller(tx *gorm.DB, in *sellerInput, s *Seller, wr write) error {
	if err := need("seller_name", in.Name, wr); err != nil {
		return err
	}
	if wr.Mode == modeCreate && in.Location == nil {
		return invalid("location", CodeRequired, "a new seller needs its first location")
	}
	if in.Name != nil {
		s.Name = *in.Name
	}
	if in.Website != nil {
		s.Website = *in.Website
	}
	if in.IsActive != nil {
		s.IsActive = *in.IsActive
	} else if wr.Mode == modeCreate {
		s.IsActive = true
	}
	if in.Memo != nil {
		s.Memo = *in.Memo
	}
	if in.AutoCatg.Set {
		s.AutoCatgID = in.AutoCatg.Value
		if s.AutoCatgID != nil {
			if err := checkExists(tx, "auto_catg", &Category{}, *s.AutoCatgID); err != nil {
				return err
			}
		}
	}
	if err := checkName("seller_name", s.Name, 60); err != nil {
		return err
	}
	return checkURL("website", s.Website)
}

// afterSeller stores auto tags, and on create the first location and any
// preferred accounts, in the seller's transaction.
func afterSeller(tx *gorm.DB, in *sellerInput, s *Seller, wr write) error {
	if in.AutoTags != nil {
		if err := replaceTags(tx, s, "AutoTags", *in.AutoTags); err != nil {
			return err
		}
	}
	if wr.Mode != modeCreate {
		return nil
	}

	loc := Location{SellerID: s.ID}
	if err := applyLocationFields(in.Location, &loc, wr); err != nil {
		return err
	}
	if err := tx.Create(&loc).Error; err != nil {
		return fmt.Errorf("create location: %w", err)
	}

	for i := range in.PrefAccounts {
		p := PreferredAccount{SellerID: s.ID}
		if err := applyPrefAccountFields(tx, &in.PrefAccounts[i], &p, wr); err != nil {
			return err
		}
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("create preferred account: %w", err)
		}
	}
	return nil
}

func sellerUncategorized(q *gorm.DB, params url.Values) (*gorm.DB, bool) {
	v := params.Get("uncategorized")
	if v == "" {
		return q, true
	}
	b, ok := parseBool(v)
	if !ok {
		return q, false
	}
	if b {
		return q.Where("auto_catg_id IS NULL"), true
	}
	return q.Where("auto_catg_id IS NOT NULL"), true
}

var sellers = resource[Seller, sellerInput]{
	Order:   "seller_name",
	Preload: []string{"AutoTags", "PrefAccounts"},
	Apply:   applySeller,
	After:   afterSeller,
	Filters: []filter{
		textExact("seller_name", "seller_name"),
		boolExact("is_active", "is_active"),
		idExact("auto_catg", "auto_catg_id"),
		textIExact("name__iexact", "seller_name"),
		textIContains("name__icontains", "seller_name"),
		sellerUncategorized,
		idIn("auto_tags", linkSubquery("seller_auto_tags", "seller_id", "tag_id")),
	},
}
