package domain

import "fmt"

// PriceType 电价类型，两个变体共用同一封闭枚举
type PriceType string

const (
	PriceBase    PriceType = "base"
	PriceHP      PriceType = "hp"
	PriceHC      PriceType = "hc"
	PriceRevente PriceType = "revente"
)

// ParsePriceType 校验电价类型
func ParsePriceType(s string) (PriceType, error) {
	switch PriceType(s) {
	case PriceBase, PriceHP, PriceHC, PriceRevente:
		return PriceType(s), nil
	}
	return "", fmt.Errorf("invalid price type %q (want base, hp, hc or revente)", s)
}

// Prices 电价表（对应 prices 表）
// SQLite 变体按客户分片，MySQL 变体为全局一份；规范模型按客户分片，
// 全局行装载成 ClientID=0 的缺省价
type Prices struct {
	ClientID int64   `db:"client_id"`
	Base     float64 `db:"base"`
	HP       float64 `db:"hp"`
	HC       float64 `db:"hc"`
	Revente  float64 `db:"revente"`

	HPSlots []TimeSlot // creneaux_hp，HP 计价生效的时段
}

// Validate 价格非负，HP 时段区间合法
func (p *Prices) Validate() error {
	for _, pair := range []struct {
		t PriceType
		v float64
	}{
		{PriceBase, p.Base}, {PriceHP, p.HP}, {PriceHC, p.HC}, {PriceRevente, p.Revente},
	} {
		if pair.v < 0 {
			return fmt.Errorf("price %s = %.4f must not be negative", pair.t, pair.v)
		}
	}
	for _, s := range p.HPSlots {
		if s.Start >= s.End {
			return fmt.Errorf("creneau hp %s: start must be before end", s)
		}
	}
	return nil
}

// At 某时刻的购电价：落在 HP 时段按 hp 计，否则按 hc
// 没有任何 HP 时段时退回 base 单一价
func (p *Prices) At(moment TimeOfDay) float64 {
	if len(p.HPSlots) == 0 {
		return p.Base
	}
	for _, s := range p.HPSlots {
		if s.Contains(moment) {
			return p.HP
		}
	}
	return p.HC
}
