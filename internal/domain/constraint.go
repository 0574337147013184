package domain

import (
	"encoding/json"
	"fmt"
)

// Constraint 运行约束（对应 constraints 表）
// PuissanceMaison 来自 SQLite 变体，ProfilConso 来自 MySQL 变体：
// 两者是不同概念，规范模型里并存，各自可空
type Constraint struct {
	ConstraintID        int64           `db:"constraint_id"`
	ClientID            int64           `db:"client_id"`
	TemperatureMinimale float64         `db:"temperature_minimale"` // °C
	PuissanceMaison     *float64        `db:"puissance_maison"`     // kW，房屋功率上限
	ProfilConso         json.RawMessage `db:"profil_conso"`         // 7x24 消费画像
	PlagesInterdites    []TimeSlot
}

// Validate 校验阈值边界与禁止时段
func (c *Constraint) Validate() error {
	if c.TemperatureMinimale <= 0 || c.TemperatureMinimale >= 95 {
		return fmt.Errorf("temperature_minimale %.3f out of range (0,95)", c.TemperatureMinimale)
	}
	if c.PuissanceMaison != nil && *c.PuissanceMaison < 0 {
		return fmt.Errorf("puissance_maison %.3f must not be negative", *c.PuissanceMaison)
	}
	seen := map[string]bool{}
	for _, p := range c.PlagesInterdites {
		if p.Start >= p.End {
			return fmt.Errorf("plage interdite %s: start must be before end", p)
		}
		key := p.String()
		if seen[key] {
			return fmt.Errorf("duplicate plage interdite %s", p)
		}
		seen[key] = true
	}
	return nil
}

// AddPlageInterdite 追加一个禁止时段，拒绝重复区间
func (c *Constraint) AddPlageInterdite(slot TimeSlot) error {
	for _, p := range c.PlagesInterdites {
		if p == slot {
			return fmt.Errorf("plage interdite %s already declared", slot)
		}
	}
	c.PlagesInterdites = append(c.PlagesInterdites, slot)
	return nil
}

// IsForbidden 时刻是否落在任一禁止时段内
func (c *Constraint) IsForbidden(moment TimeOfDay) bool {
	for _, p := range c.PlagesInterdites {
		if p.Contains(moment) {
			return true
		}
	}
	return false
}
