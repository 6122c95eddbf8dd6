package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"smush/internal/domain"
)

// UserSource entrega el usuario publicado.
type UserSource interface {
	Current() *domain.User
}

// MatchDraft es el estado del formulario de alta de partidas. Los GSP llegan
// enmascarados tal como los escribe el usuario.
type MatchDraft struct {
	Match       domain.Match
	UserGsp     string
	OpponentGsp string
	Tags        []domain.Tag
}

// AddTag agrega la etiqueta si no estaba.
func (d *MatchDraft) AddTag(tag domain.Tag) {
	for _, t := range d.Tags {
		if t.TagID == tag.TagID {
			return
		}
	}
	d.Tags = append(d.Tags, tag)
}

func (d *MatchDraft) RemoveTag(tagID int64) {
	for i, t := range d.Tags {
		if t.TagID == tagID {
			d.Tags = append(d.Tags[:i:i], d.Tags[i+1:]...)
			return
		}
	}
}

// MatchForm arma, valida y registra partidas del usuario actual.
type MatchForm struct {
	logger   *zap.Logger
	users    UserSource
	matches  *MatchCache
	notifier Notifier
}

func NewMatchForm(logger *zap.Logger, users UserSource, matches *MatchCache, notifier Notifier) *MatchForm {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &MatchForm{logger: logger, users: users, matches: matches, notifier: notifier}
}

// NewDraft parte del personaje y GSP default del usuario.
func (f *MatchForm) NewDraft() MatchDraft {
	var d MatchDraft
	u := f.users.Current()
	if u == nil {
		return d
	}
	d.Match.UserID = u.UserID
	if u.DefaultCharacterID != nil {
		d.Match.UserCharacterID = domain.Ptr(*u.DefaultCharacterID)
	}
	if u.DefaultCharacterGsp != nil {
		d.UserGsp = FormatGsp(*u.DefaultCharacterGsp)
	}
	return d
}

// Validate devuelve las advertencias que bloquean el registro.
func (f *MatchForm) Validate(d MatchDraft) []string {
	var warnings []string
	if d.Match.OpponentCharacterID == 0 {
		warnings = append(warnings, "Opponent character required.")
	}
	gsp, err := ParseGsp(d.UserGsp)
	if err != nil {
		warnings = append(warnings, "User GSP is not a valid number.")
	}
	if gsp != nil && d.Match.UserCharacterID == nil {
		warnings = append(warnings, "User GSP must be associated with a user character.")
	}
	if _, err := ParseGsp(d.OpponentGsp); err != nil {
		warnings = append(warnings, "Opponent GSP is not a valid number.")
	}
	return warnings
}

// Record valida y crea la partida. Devuelve también el borrador siguiente,
// que conserva el personaje y el GSP del usuario.
func (f *MatchForm) Record(ctx context.Context, d MatchDraft) (domain.Match, MatchDraft, error) {
	if warnings := f.Validate(d); len(warnings) > 0 {
		for _, w := range warnings {
			f.notifier.Toast(ToastWarning, w)
		}
		return domain.Match{}, d, newValidationError(warnings)
	}
	if f.users.Current() == nil {
		return domain.Match{}, d, ErrNotLoggedIn
	}

	m := d.Match.Clone()
	m.MatchID = 0
	m.UserCharacterGsp, _ = ParseGsp(d.UserGsp)
	m.OpponentCharacterGsp, _ = ParseGsp(d.OpponentGsp)
	m.MatchTags = make([]domain.MatchTag, 0, len(d.Tags))
	for _, t := range d.Tags {
		m.MatchTags = append(m.MatchTags, domain.MatchTag{TagID: t.TagID, TagName: t.TagName})
	}

	created, err := f.matches.Create(ctx, m)
	if err != nil {
		f.logger.Warn("record match failed", zap.Int64("user_id", m.UserID), zap.Error(err))
		f.notifier.Toast(ToastDanger, "Unable to save match.")
		return domain.Match{}, d, fmt.Errorf("record match: %w", err)
	}

	next := MatchDraft{UserGsp: d.UserGsp}
	next.Match.UserID = d.Match.UserID
	next.Match.UserCharacterID = d.Match.UserCharacterID
	next.Match.UserCharacterName = d.Match.UserCharacterName
	return created, next, nil
}
