package domain

import "time"

// Match registra una partida. Created lo asigna el servidor y no cambia.
type Match struct {
	MatchID                int64      `json:"matchId,omitempty"`
	UserID                 int64      `json:"userId"`
	UserName               string     `json:"userName,omitempty"`
	Created                *time.Time `json:"created,omitempty"`
	OpponentCharacterID    int64      `json:"opponentCharacterId"`
	OpponentCharacterName  string     `json:"opponentCharacterName,omitempty"`
	OpponentCharacterImage *string    `json:"opponentCharacterImage,omitempty"`
	OpponentCharacterGsp   *int64     `json:"opponentCharacterGsp,omitempty"`
	UserCharacterID        *int64     `json:"userCharacterId,omitempty"`
	UserCharacterName      *string    `json:"userCharacterName,omitempty"`
	UserCharacterImage     *string    `json:"userCharacterImage,omitempty"`
	UserCharacterGsp       *int64     `json:"userCharacterGsp,omitempty"`
	AltCostume             *int64     `json:"altCostume,omitempty"`
	UserWin                *bool      `json:"userWin,omitempty"`
	OpponentTeabag         *bool      `json:"opponentTeabag,omitempty"`
	OpponentCamp           *bool      `json:"opponentCamp,omitempty"`
	OpponentAwesome        *bool      `json:"opponentAwesome,omitempty"`
	MatchTags              []MatchTag `json:"matchTags,omitempty"`
}

// MatchTag une un Tag a una partida con copia del nombre para mostrar.
type MatchTag struct {
	MatchTagID int64  `json:"matchTagId,omitempty"`
	MatchID    int64  `json:"matchId,omitempty"`
	TagID      int64  `json:"tagId"`
	TagName    string `json:"tagName"`
}

// Clone copia la partida sin compartir punteros con el original.
func (m Match) Clone() Match {
	c := m
	if m.Created != nil {
		t := *m.Created
		c.Created = &t
	}
	c.OpponentCharacterImage = cloneString(m.OpponentCharacterImage)
	c.OpponentCharacterGsp = cloneInt64(m.OpponentCharacterGsp)
	c.UserCharacterID = cloneInt64(m.UserCharacterID)
	c.UserCharacterName = cloneString(m.UserCharacterName)
	c.UserCharacterImage = cloneString(m.UserCharacterImage)
	c.UserCharacterGsp = cloneInt64(m.UserCharacterGsp)
	c.AltCostume = cloneInt64(m.AltCostume)
	c.UserWin = cloneBool(m.UserWin)
	c.OpponentTeabag = cloneBool(m.OpponentTeabag)
	c.OpponentCamp = cloneBool(m.OpponentCamp)
	c.OpponentAwesome = cloneBool(m.OpponentAwesome)
	if m.MatchTags != nil {
		c.MatchTags = append([]MatchTag(nil), m.MatchTags...)
	}
	return c
}

// Won devuelve true sólo si la partida está marcada como ganada.
func (m Match) Won() bool {
	return m.UserWin != nil && *m.UserWin
}
