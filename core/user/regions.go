package user

import (
	"sort"

	"github.com/qazmun/mun/core"
)

type Region struct {
	ID   int            `json:"id"`
	Name core.Localized `json:"name"`
}

var regions = map[int]core.Localized{
	1:  {RU: "Алматы", KK: "Алматы", EN: "Almaty"},
	2:  {RU: "Астана", KK: "Астана", EN: "Astana"},
	3:  {RU: "Шымкент", KK: "Шымкент", EN: "Shymkent"},
	18: {RU: "Семей", KK: "Семей", EN: "Semey"},
	19: {RU: "Кокшетау", KK: "Көкшетау", EN: "Kokshetau"},
	20: {RU: "Талдыкорган", KK: "Талдықорған", EN: "Taldykorgan"},
	21: {RU: "Уральск", KK: "Орал", EN: "Uralsk"},
	22: {RU: "Усть-Каменогорск", KK: "Өскемен", EN: "Ust-Kamenogorsk"},
	23: {RU: "Актобе", KK: "Ақтөбе", EN: "Aktobe"},
	24: {RU: "Караганда", KK: "Қарағанды", EN: "Karaganda"},
	25: {RU: "Тараз", KK: "Тараз", EN: "Taraz"},
	26: {RU: "Кызылорда", KK: "Қызылорда", EN: "Kyzylorda"},
	27: {RU: "Павлодар", KK: "Павлодар", EN: "Pavlodar"},
	28: {RU: "Атырау", KK: "Атырау", EN: "Atyrau"},
	29: {RU: "Костанай", KK: "Қостанай", EN: "Kostanay"},
	30: {RU: "Петропавловск", KK: "Петропавл", EN: "Petropavlovsk"},
	31: {RU: "Актау", KK: "Ақтау", EN: "Aktau"},
	32: {RU: "Туркестан", KK: "Түркістан", EN: "Turkestan"},
}

// Regions returns the regions catalog ordered by id.
func Regions() []Region {
	res := make([]Region, 0, len(regions))
	for id, name := range regions {
		res = append(res, Region{ID: id, Name: name})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func IsKnownRegion(id int) bool {
	_, ok := regions[id]
	return ok
}
