package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"smush/internal/apiclient"
	"smush/internal/domain"
)

// MatchCache es el cache de partidas con resaltado de altas y los hooks de
// desnormalización que dispara la edición de perfil.
type MatchCache struct {
	*EntityCache[domain.Match]
	highlights *Highlights
}

func NewMatchCache(logger *zap.Logger, api API, notifier Notifier, basePath string, highlight time.Duration) *MatchCache {
	spec := CacheSpec[domain.Match]{
		Name:     "match",
		BasePath: basePath,
		ListKey:  "matches",
		ItemKey:  "match",
		IDField:  "matchId",
		ID:       func(m domain.Match) int64 { return m.MatchID },
		WithID: func(m domain.Match, id int64) domain.Match {
			m.MatchID = id
			return m
		},
		Clone: domain.Match.Clone,
	}
	return &MatchCache{
		EntityCache: NewEntityCache(logger, api, notifier, spec),
		highlights:  NewHighlights(highlight),
	}
}

// Highlights expone las partidas recién creadas.
func (c *MatchCache) Highlights() *Highlights {
	return c.highlights
}

// Create registra la partida y la marca como nueva.
func (c *MatchCache) Create(ctx context.Context, m domain.Match) (domain.Match, error) {
	created, err := c.EntityCache.Create(ctx, m)
	if err != nil {
		return created, err
	}
	c.highlights.Mark(created.MatchID)
	return created, nil
}

func (c *MatchCache) Reset() {
	c.EntityCache.Reset()
	c.highlights.Clear()
}

// SyncUserName copia el nombre del usuario a todas sus partidas.
func (c *MatchCache) SyncUserName(user *domain.User) {
	if user == nil {
		return
	}
	c.Mutate(func(matches []domain.Match) []domain.Match {
		for i := range matches {
			if matches[i].UserID == user.UserID {
				matches[i].UserName = user.UserName
			}
		}
		return matches
	})
}

// SyncAltCostume copia el traje alternativo de cada personaje del usuario a
// las partidas jugadas con ese personaje.
func (c *MatchCache) SyncAltCostume(user *domain.User) {
	if user == nil {
		return
	}
	costumes := make(map[int64]*int64, len(user.UserCharacters))
	for _, uc := range user.UserCharacters {
		costumes[uc.CharacterID] = uc.AltCostume
	}
	c.Mutate(func(matches []domain.Match) []domain.Match {
		for i := range matches {
			m := &matches[i]
			if m.UserID != user.UserID || m.UserCharacterID == nil {
				continue
			}
			if alt, ok := costumes[*m.UserCharacterID]; ok {
				if alt == nil {
					m.AltCostume = nil
				} else {
					m.AltCostume = domain.Ptr(*alt)
				}
			}
		}
		return matches
	})
}

// NewCharacterCache lee con reintento acotado y ordena por nombre.
func NewCharacterCache(logger *zap.Logger, api API, notifier Notifier, basePath string, retry apiclient.RetryPolicy) *EntityCache[domain.Character] {
	return NewEntityCache(logger, api, notifier, CacheSpec[domain.Character]{
		Name:     "character",
		BasePath: basePath,
		ListKey:  "characters",
		ItemKey:  "character",
		IDField:  "characterId",
		ID:       func(ch domain.Character) int64 { return ch.CharacterID },
		WithID: func(ch domain.Character, id int64) domain.Character {
			ch.CharacterID = id
			return ch
		},
		Less: func(a, b domain.Character) bool {
			return strings.ToLower(a.CharacterName) < strings.ToLower(b.CharacterName)
		},
		Clone: func(ch domain.Character) domain.Character {
			ch.CharacterStockImg = copyString(ch.CharacterStockImg)
			ch.CharacterImg = copyString(ch.CharacterImg)
			ch.CharacterArchetype = copyString(ch.CharacterArchetype)
			return ch
		},
		Retry: retry,
	})
}

// NewTagCache mantiene las etiquetas ordenadas por nombre.
func NewTagCache(logger *zap.Logger, api API, notifier Notifier, basePath string) *EntityCache[domain.Tag] {
	return NewEntityCache(logger, api, notifier, CacheSpec[domain.Tag]{
		Name:     "tag",
		BasePath: basePath,
		ListKey:  "tags",
		ItemKey:  "tag",
		IDField:  "tagId",
		ID:       func(t domain.Tag) int64 { return t.TagID },
		WithID: func(t domain.Tag, id int64) domain.Tag {
			t.TagID = id
			return t
		},
		Less: func(a, b domain.Tag) bool {
			return strings.ToLower(a.TagName) < strings.ToLower(b.TagName)
		},
	})
}

// UserDirectory es el listado de usuarios de la superficie admin.
type UserDirectory struct {
	*EntityCache[domain.User]
}

func NewUserDirectory(logger *zap.Logger, api API, notifier Notifier, basePath string) *UserDirectory {
	return &UserDirectory{EntityCache: NewEntityCache(logger, api, notifier, CacheSpec[domain.User]{
		Name:     "user",
		BasePath: basePath,
		ListKey:  "users",
		ItemKey:  "user",
		IDField:  "userId",
		ID:       func(u domain.User) int64 { return u.UserID },
		Clone:    func(u domain.User) domain.User { return *u.Clone() },
	})}
}

// SyncUserName actualiza la fila del usuario editado.
func (d *UserDirectory) SyncUserName(user *domain.User) {
	if user == nil {
		return
	}
	d.Mutate(func(users []domain.User) []domain.User {
		for i := range users {
			if users[i].UserID == user.UserID {
				users[i].UserName = user.UserName
				users[i].EmailAddress = user.EmailAddress
			}
		}
		return users
	})
}

// Caches agrupa las instancias que comparte la aplicación.
type Caches struct {
	Matches    *MatchCache
	Characters *EntityCache[domain.Character]
	Tags       *EntityCache[domain.Tag]
	Users      *UserDirectory
}

// LoadAll carga las listas visibles para user. El directorio sólo se pide
// para administradores. Devuelve el primer error; las demás cargas siguen.
func (c *Caches) LoadAll(ctx context.Context, user *domain.User) error {
	var first error
	loads := []func(context.Context) error{c.Characters.LoadAll, c.Tags.LoadAll, c.Matches.LoadAll}
	if user.IsAdmin() {
		loads = append(loads, c.Users.LoadAll)
	}
	for _, load := range loads {
		if err := load(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *Caches) Reset() {
	c.Matches.Reset()
	c.Characters.Reset()
	c.Tags.Reset()
	c.Users.Reset()
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
