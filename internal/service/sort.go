package service

import (
	"sort"
	"strings"
	"time"

	"smush/internal/domain"
)

// SortDirection es el estado de un encabezado ordenable.
type SortDirection string

const (
	SortNone SortDirection = ""
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// NextSortDirection rota '' -> asc -> desc -> ''.
func NextSortDirection(d SortDirection) SortDirection {
	switch d {
	case SortNone:
		return SortAsc
	case SortAsc:
		return SortDesc
	default:
		return SortNone
	}
}

// Columnas ordenables de la tabla de partidas.
const (
	MatchColumnCreated           = "created"
	MatchColumnUserName          = "userName"
	MatchColumnUserCharacter     = "userCharacterName"
	MatchColumnUserGsp           = "userCharacterGsp"
	MatchColumnOpponentCharacter = "opponentCharacterName"
	MatchColumnOpponentGsp       = "opponentCharacterGsp"
	MatchColumnUserWin           = "userWin"
)

// SortMatches devuelve una copia ordenada. Con SortNone la copia conserva el
// orden original. Los valores nil van siempre al final.
func SortMatches(matches []domain.Match, column string, dir SortDirection) []domain.Match {
	out := append([]domain.Match(nil), matches...)
	if dir == SortNone {
		return out
	}
	cmp := matchComparator(column)
	if cmp == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		c, ok := cmp(out[i], out[j])
		if !ok {
			return c < 0
		}
		if dir == SortDesc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// comparator devuelve (resultado, ambos presentes). Cuando falta alguno el
// resultado ya ubica al nil al final sin importar la dirección.
type comparator func(a, b domain.Match) (int, bool)

func matchComparator(column string) comparator {
	switch column {
	case MatchColumnCreated:
		return func(a, b domain.Match) (int, bool) { return compareTime(a.Created, b.Created) }
	case MatchColumnUserName:
		return func(a, b domain.Match) (int, bool) { return compareString(&a.UserName, &b.UserName) }
	case MatchColumnUserCharacter:
		return func(a, b domain.Match) (int, bool) { return compareString(a.UserCharacterName, b.UserCharacterName) }
	case MatchColumnUserGsp:
		return func(a, b domain.Match) (int, bool) { return compareInt(a.UserCharacterGsp, b.UserCharacterGsp) }
	case MatchColumnOpponentCharacter:
		return func(a, b domain.Match) (int, bool) {
			return compareString(&a.OpponentCharacterName, &b.OpponentCharacterName)
		}
	case MatchColumnOpponentGsp:
		return func(a, b domain.Match) (int, bool) { return compareInt(a.OpponentCharacterGsp, b.OpponentCharacterGsp) }
	case MatchColumnUserWin:
		return func(a, b domain.Match) (int, bool) { return compareBool(a.UserWin, b.UserWin) }
	}
	return nil
}

func nilOrder(aNil, bNil bool) (int, bool) {
	switch {
	case aNil && bNil:
		return 0, false
	case aNil:
		return 1, false
	default:
		return -1, false
	}
}

func compareInt(a, b *int64) (int, bool) {
	if a == nil || b == nil {
		return nilOrder(a == nil, b == nil)
	}
	switch {
	case *a < *b:
		return -1, true
	case *a > *b:
		return 1, true
	}
	return 0, true
}

func compareString(a, b *string) (int, bool) {
	if a == nil || b == nil {
		return nilOrder(a == nil, b == nil)
	}
	return strings.Compare(strings.ToLower(*a), strings.ToLower(*b)), true
}

func compareTime(a, b *time.Time) (int, bool) {
	if a == nil || b == nil {
		return nilOrder(a == nil, b == nil)
	}
	return a.Compare(*b), true
}

func compareBool(a, b *bool) (int, bool) {
	if a == nil || b == nil {
		return nilOrder(a == nil, b == nil)
	}
	switch {
	case *a == *b:
		return 0, true
	case !*a:
		return -1, true
	}
	return 1, true
}
