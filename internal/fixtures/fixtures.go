package fixtures

import (
	"optimasol-schema/internal/domain"
	"optimasol-schema/internal/validate"
)

// Fixtures 启动时装载的种子数据
// 原来散落在两个 dump 里的 INSERT 字面量收敛到这里，
// 应用层只认这一份显式结构，不再依赖埋在 DDL 里的数据
type Fixtures struct {
	AdminClient domain.Client
	Prices      domain.Prices
}

// Default 两个 dump 共同的种子集：管理客户 1 号、四档电价、两个 HP 时段
func Default() *Fixtures {
	slots := []domain.TimeSlot{
		mustSlot("06:00:00", "08:00:00"),
		mustSlot("17:00:00", "19:00:00"),
	}
	prices := domain.Prices{
		ClientID: 1,
		Base:     0.18,
		HP:       0.22,
		HC:       0.15,
		Revente:  0.10,
		HPSlots:  slots,
	}
	return &Fixtures{
		AdminClient: domain.Client{
			ClientID: 1,
			Features: domain.Features{Gradation: false, Mode: domain.ModeAutoCons},
			Prices:   &prices,
		},
		Prices: prices,
	}
}

// Rows 以规范字段名展开成行数据，供约束校验器过一遍
func (f *Fixtures) Rows() map[string][]validate.Row {
	rows := map[string][]validate.Row{
		"clients": {
			{"client_id": float64(f.AdminClient.ClientID), "gradation": boolToFloat(f.AdminClient.Features.Gradation), "mode": string(f.AdminClient.Features.Mode)},
		},
		"prices": {
			{"client_id": float64(f.Prices.ClientID), "type": "base", "prix": f.Prices.Base},
			{"client_id": float64(f.Prices.ClientID), "type": "hp", "prix": f.Prices.HP},
			{"client_id": float64(f.Prices.ClientID), "type": "hc", "prix": f.Prices.HC},
			{"client_id": float64(f.Prices.ClientID), "type": "revente", "prix": f.Prices.Revente},
		},
	}
	var hp []validate.Row
	for _, s := range f.Prices.HPSlots {
		hp = append(hp, validate.Row{
			"client_id":   float64(f.Prices.ClientID),
			"heure_debut": s.Start.String(),
			"heure_fin":   s.End.String(),
		})
	}
	rows["creneaux_hp"] = hp
	return rows
}

func mustSlot(start, end string) domain.TimeSlot {
	s, err := domain.ParseTimeSlot(start, end)
	if err != nil {
		panic(err)
	}
	return s
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
