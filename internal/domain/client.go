package domain

import "fmt"

// Mode 优化目标
type Mode string

const (
	ModeAutoCons Mode = "AutoCons" // 优先自发自用
	ModeCost     Mode = "cost"     // 优先电费最小化
)

// ParseMode 封闭枚举，两个变体取值完全一致
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAutoCons, ModeCost:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid mode %q (want AutoCons or cost)", s)
}

// Features 客户的可选行为开关
type Features struct {
	Gradation bool `db:"gradation"` // 加热功率是否可分级调节
	Mode      Mode `db:"mode"`
}

// Client 客户领域模型（对应规范化后的 clients 表）
// 地理与认证字段只有 MySQL 变体携带，规范模型照收，值可为空
type Client struct {
	ClientID  int64    `db:"client_id"`
	Nom       *string  `db:"nom"`
	Email     *string  `db:"email"`
	Latitude  *float64 `db:"latitude"`
	Longitude *float64 `db:"longitude"`
	Tilt      *float64 `db:"tilt"`
	Azimuth   *float64 `db:"azimuth"`
	RouterID  *string  `db:"router_id"`
	Pwd       *string  `db:"pwd"` // 已散列的凭据，这里从不解读内容
	Features  Features

	WaterHeater *WaterHeater
	Constraint  *Constraint
	Prices      *Prices
	Consignes   []Consigne
}

// Validate 校验客户自身及其全部下属实体
func (c *Client) Validate() error {
	if _, err := ParseMode(string(c.Features.Mode)); err != nil {
		return fmt.Errorf("client %d: %w", c.ClientID, err)
	}
	if c.WaterHeater != nil {
		if err := c.WaterHeater.Validate(); err != nil {
			return fmt.Errorf("client %d: %w", c.ClientID, err)
		}
	}
	if c.Constraint != nil {
		if err := c.Constraint.Validate(); err != nil {
			return fmt.Errorf("client %d: %w", c.ClientID, err)
		}
	}
	if c.Prices != nil {
		if err := c.Prices.Validate(); err != nil {
			return fmt.Errorf("client %d: %w", c.ClientID, err)
		}
	}
	seen := map[string]bool{}
	for _, cs := range c.Consignes {
		if err := cs.Validate(); err != nil {
			return fmt.Errorf("client %d: %w", c.ClientID, err)
		}
		key := fmt.Sprintf("%d@%s", cs.Day, cs.Moment)
		if seen[key] {
			return fmt.Errorf("client %d: duplicate consigne for day %d at %s", c.ClientID, cs.Day, cs.Moment)
		}
		seen[key] = true
	}
	return nil
}
