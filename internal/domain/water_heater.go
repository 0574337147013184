package domain

import "fmt"

// WaterHeater 热水器物理参数（对应 water_heaters 表）
// 规范单位：升 / 瓦。MySQL 变体的 puissance_kw 需要在装载时乘 1000
type WaterHeater struct {
	WaterHeaterID        int64   `db:"water_heater_id"`
	ClientID             int64   `db:"client_id"`
	Volume               float64 `db:"volume"`          // L
	Power                float64 `db:"power"`           // W
	CoeffIsolation       float64 `db:"coeff_isolation"` // °C/min 固定散热
	ColdWaterTemperature float64 `db:"temperature_eau_froide_celsius"`
}

// Validate 体积与功率必须为正
func (w *WaterHeater) Validate() error {
	if w.Volume <= 0 {
		return fmt.Errorf("water heater volume %.3f must be positive", w.Volume)
	}
	if w.Power <= 0 {
		return fmt.Errorf("water heater power %.3f must be positive", w.Power)
	}
	return nil
}

// HeatingMinutes 把 volume 升水从 from 加热到 to 需要的分钟数
// 4186 J/(kg·°C)，1 L 水按 1 kg 计
func (w *WaterHeater) HeatingMinutes(volume, from, to float64) float64 {
	if to <= from || volume <= 0 || w.Power <= 0 {
		return 0
	}
	joules := volume * 4186 * (to - from)
	return joules / w.Power / 60
}
