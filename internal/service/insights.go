package service

import (
	"sort"
	"time"

	"smush/internal/domain"
)

// Tipos de orden del gráfico de uso.
const (
	UsageSortAlpha = "alpha"
	UsageSortUse   = "use"
)

// UsageFilter acota las partidas consideradas. Start y End se comparan por
// fecha calendario (inclusive) en Location; UserID 0 no filtra.
type UsageFilter struct {
	Start    *time.Time
	End      *time.Time
	UserID   int64
	Location *time.Location
}

// UsagePoint es una barra del gráfico: porcentaje de partidas contra ese rival.
type UsagePoint struct {
	Name    string  `json:"name"`
	Percent float64 `json:"value"`
}

// CharacterUsage agrupa por personaje rival y devuelve porcentajes. Sin
// partidas tras el filtro devuelve nil.
func CharacterUsage(matches []domain.Match, filter UsageFilter, sortType string, order SortDirection) []UsagePoint {
	filtered := filter.apply(matches)
	if len(filtered) == 0 {
		return nil
	}

	var series []UsagePoint
	index := map[string]int{}
	for _, m := range filtered {
		i, ok := index[m.OpponentCharacterName]
		if !ok {
			i = len(series)
			index[m.OpponentCharacterName] = i
			series = append(series, UsagePoint{Name: m.OpponentCharacterName})
		}
		series[i].Percent++
	}
	total := float64(len(filtered))
	for i := range series {
		series[i].Percent = series[i].Percent / total * 100
	}

	sortUsage(series, sortType, order)
	return series
}

func sortUsage(series []UsagePoint, sortType string, order SortDirection) {
	if order != SortAsc && order != SortDesc {
		return
	}
	var less func(a, b UsagePoint) bool
	switch sortType {
	case UsageSortAlpha:
		less = func(a, b UsagePoint) bool { return a.Name < b.Name }
	case UsageSortUse:
		less = func(a, b UsagePoint) bool { return a.Percent < b.Percent }
	default:
		return
	}
	sort.SliceStable(series, func(i, j int) bool {
		if order == SortDesc {
			return less(series[j], series[i])
		}
		return less(series[i], series[j])
	})
}

// GspPoint es un punto de la serie de GSP.
type GspPoint struct {
	At  time.Time `json:"name"`
	Gsp int64     `json:"value"`
}

// GspHistory devuelve el GSP del usuario a lo largo del tiempo, en orden
// cronológico. characterID 0 incluye todos sus personajes.
func GspHistory(matches []domain.Match, filter UsageFilter, characterID int64) []GspPoint {
	var points []GspPoint
	for _, m := range filter.apply(matches) {
		if m.Created == nil || m.UserCharacterGsp == nil {
			continue
		}
		if characterID != 0 && (m.UserCharacterID == nil || *m.UserCharacterID != characterID) {
			continue
		}
		points = append(points, GspPoint{At: *m.Created, Gsp: *m.UserCharacterGsp})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].At.Before(points[j].At) })
	return points
}

func (f UsageFilter) apply(matches []domain.Match) []domain.Match {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	var start, end string
	if f.Start != nil {
		start = f.Start.In(loc).Format(time.DateOnly)
	}
	if f.End != nil {
		end = f.End.In(loc).Format(time.DateOnly)
	}

	var out []domain.Match
	for _, m := range matches {
		if start != "" || end != "" {
			if m.Created == nil {
				continue
			}
			day := m.Created.In(loc).Format(time.DateOnly)
			if start != "" && day < start {
				continue
			}
			if end != "" && day > end {
				continue
			}
		}
		if f.UserID != 0 && m.UserID != f.UserID {
			continue
		}
		out = append(out, m)
	}
	return out
}
