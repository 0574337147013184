package domain

import "fmt"

// Consigne 预约设定点（对应 consignes 表）
// 以 (day, moment) 定位一周内的一个时刻，温度与热水量为目标值
type Consigne struct {
	ConsigneID  int64     `db:"consigne_id"`
	ClientID    int64     `db:"client_id"`
	Day         int       `db:"day"` // 0=周一 .. 6=周日
	Moment      TimeOfDay `db:"moment"`
	Temperature float64   `db:"temperature"` // °C
	Volume      float64   `db:"volume"`      // L
}

// Validate 逐条校验两个 dump 观察到的全部边界
func (c *Consigne) Validate() error {
	if c.Day < 0 || c.Day > 6 {
		return fmt.Errorf("consigne day %d out of range [0,6]", c.Day)
	}
	if c.Temperature < 30 || c.Temperature > 99 {
		return fmt.Errorf("consigne temperature %.3f out of range [30,99]", c.Temperature)
	}
	if c.Volume <= 0 {
		return fmt.Errorf("consigne volume %.3f must be positive", c.Volume)
	}
	return nil
}
