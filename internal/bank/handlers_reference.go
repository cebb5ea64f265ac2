package bank

import (
	"gorm.io/gorm"
)

type sourceInput struct {
	Name     *string `json:"name"`
	Abbrev   *string `json:"abbrev"`
	IsActive *bool   `json:"is_active"`
}

func applySource(_ *gorm.DB, in *sourceInput, s *Source, wr write) error {
	if err := need("name", in.Name, wr); err != nil {
		return err
	}
	if err := need("abbrev", in.Abbrev, wr); err != nil {
		return err
	}
	if in.Name != nil {
		s.Name = *in.Name
	}
	if in.Abbrev != nil {
		s.Abbrev = *in.Abbrev
	}
	if in.IsActive != nil {
		s.IsActive = *in.IsActive
	} else if wr.Mode == modeCreate {
		s.IsActive = true
	}
	if err := checkName("name", s.Name, 100); err != nil {
		return err
	}
	return checkName("abbrev", s.Abbrev, 20)
}

var sources = resource[Source, sourceInput]{
	Order: "id",
	Apply: applySource,
	Filters: []filter{
		boolExact("is_active", "is_active"),
	},
}

type institutionInput struct {
	Name   *string `json:"name"`
	Abbrev *string `json:"abbrev"`
}

func applyInstitution(_ *gorm.DB, in *institutionInput, inst *Institution, wr write) error {
	if err := need("name", in.Name, wr); err != nil {
		return err
	}
	if err := need("abbrev", in.Abbrev, wr); err != nil {
		return err
	}
	if in.Name != nil {
		inst.Name = *in.Name
	}
	if in.Abbrev != nil {
		inst.Abbrev = *in.Abbrev
	}
	if err := checkName("name", inst.Name, 100); err != nil {
		return err
	}
	return checkName("abbrev", inst.Abbrev, 20)
}

var institutions = resource[Institution, institutionInput]{
	Order: "id",
	Apply: applyInstitution,
}

type accountInput struct {
	Inst       *uint   `json:"inst"`
	AcctName   *string `json:"acct_name"`
	AcctNumber *string `json:"acct_number"`
	IsActive   *bool   `json:"is_active"`
	Memo       *string `json:"memo"`
}

func applyAccount(tx *gorm.DB, in *accountInput, a *Account, wr write) error {
	if err := need("inst", in.Inst, wr); err != nil {
		return err
	}
	if err := need("acct_name", in.AcctName, wr); err != nil {
		return err
	}
	if err := need("acct_number", in.AcctNumber, wr); err != nil {
		return err
	}
	if in.Inst != nil {
		if err := checkExists(tx, "inst", &Institution{}, *in.Inst); err != nil {
			return err
		}
		a.InstID = *in.Inst
	}
	if in.AcctName != nil {
		a.AcctName = *in.AcctName
	}
	if in.AcctNumber != nil {
		a.AcctNumber = *in.AcctNumber
	}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	} else if wr.Mode == modeCreate {
		a.IsActive = true
	}
	if in.Memo != nil {
		a.Memo = *in.Memo
	}
	if err := checkName("acct_name", a.AcctName, 80); err != nil {
		return err
	}
	return checkName("acct_number", a.AcctNumber, 60)
}

var accounts = resource[Account, accountInput]{
	Order: "id",
	Apply: applyAccount,
	Filters: []filter{
		idExact("inst", "inst_id"),
		boolExact("is_active", "is_active"),
	},
}

type paytypeInput struct {
	Paytype *string `json:"paytype"`
}

func applyPaytype(_ *gorm.DB, in *paytypeInput, p *Paytype, wr write) error {
	if err := need("paytype", in.Paytype, wr); err != nil {
		return err
	}
	if in.Paytype != nil {
		p.Name = *in.Paytype
	}
	return checkName("paytype", p.Name, 20)
}

var paytypes = resource[Paytype, paytypeInput]{
	Order: "id",
	Apply: applyPaytype,
}

type categoryInput struct {
	Catg        *string `json:"catg"`
	Description *string `json:"description"`
}

func applyCategory(_ *gorm.DB, in *categoryInput, c *Category, wr write) error {
	if err := need("catg", in.Catg, wr); err != nil {
		return err
	}
	if in.Catg != nil {
		c.Name = *in.Catg
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	return checkName("catg", c.Name, 20)
}

var categories = resource[Category, categoryInput]{
	Order: "catg",
	Apply: applyCategory,
}

type tagInput struct {
	Tag *string `json:"tag"`
}

func applyTag(_ *gorm.DB, in *tagInput, t *Tag, wr write) error {
	if err := need("tag", in.Tag, wr); err != nil {
		return err
	}
	if in.Tag != nil {
		t.Name = *in.Tag
	}
	return checkName("tag", t.Name, 20)
}

var tags = resource[Tag, tagInput]{
	Order: "tag",
	Apply: applyTag,
}
