package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"smush/internal/domain"
	"smush/internal/service"
)

// Home maneja GET /home.
func (h *Handlers) Home(c *gin.Context) {
	session, _ := GetSession(c)
	h.respond(c, http.StatusOK, gin.H{
		"page":     "home",
		"loggedIn": session.LoggedIn(),
		"user":     session.User,
	})
}

// Matches maneja GET /matches?sort=<columna>&dir=<asc|desc>.
func (h *Handlers) Matches(c *gin.Context) {
	matches := h.caches.Matches.Items()
	dir := service.SortDirection(c.Query("dir"))
	if col := c.Query("sort"); col != "" {
		matches = service.SortMatches(matches, col, dir)
	}

	highlighted := []int64{}
	for _, m := range matches {
		if h.caches.Matches.Highlights().IsNew(m.MatchID) {
			highlighted = append(highlighted, m.MatchID)
		}
	}

	draft := h.form.NewDraft()
	h.respond(c, http.StatusOK, gin.H{
		"page":        "matches",
		"loaded":      h.caches.Matches.Loaded(),
		"matches":     matches,
		"highlighted": highlighted,
		"nextSort":    service.NextSortDirection(dir),
		"draft":       draftView(draft),
		"characters":  h.caches.Characters.Items(),
		"tags":        h.caches.Tags.Items(),
	})
}

// Insights maneja GET /insights. Filtros opcionales: start, end (YYYY-MM-DD),
// user, character, sortType (alpha|use), sortOrder (asc|desc).
func (h *Handlers) Insights(c *gin.Context) {
	filter := service.UsageFilter{Location: time.Local}
	var err error
	if filter.Start, err = parseDay(c.Query("start")); err != nil {
		h.badRequest(c, "insights", err)
		return
	}
	if filter.End, err = parseDay(c.Query("end")); err != nil {
		h.badRequest(c, "insights", err)
		return
	}
	if filter.UserID, err = parseID(c.Query("user")); err != nil {
		h.badRequest(c, "insights", err)
		return
	}
	characterID, err := parseID(c.Query("character"))
	if err != nil {
		h.badRequest(c, "insights", err)
		return
	}

	sortType := c.DefaultQuery("sortType", service.UsageSortUse)
	sortOrder := service.SortDirection(c.DefaultQuery("sortOrder", string(service.SortDesc)))
	matches := h.caches.Matches.Items()
	usage := service.CharacterUsage(matches, filter, sortType, sortOrder)

	h.respond(c, http.StatusOK, gin.H{
		"page":                    "insights",
		"usage":                   usage,
		"noFilteredDataToDisplay": len(usage) == 0,
		"gspHistory":              service.GspHistory(matches, filter, characterID),
	})
}

// ProfileEdit maneja GET /profile/edit.
func (h *Handlers) ProfileEdit(c *gin.Context) {
	session, _ := GetSession(c)
	h.respond(c, http.StatusOK, gin.H{
		"page":       "profile",
		"user":       session.User,
		"default":    session.User.DefaultUserCharacter(),
		"characters": h.caches.Characters.Items(),
	})
}

// Admin maneja GET /admin.
func (h *Handlers) Admin(c *gin.Context) {
	h.respond(c, http.StatusOK, gin.H{
		"page":       "admin",
		"users":      h.caches.Users.Items(),
		"characters": h.caches.Characters.Items(),
		"tags":       h.caches.Tags.Items(),
	})
}

// ResetPasswordRequest maneja GET /reset-password/request.
func (h *Handlers) ResetPasswordRequest(c *gin.Context) {
	h.respond(c, http.StatusOK, gin.H{"page": "reset-password-request"})
}

// ResetPasswordToken maneja GET /reset-password/token?token=...
func (h *Handlers) ResetPasswordToken(c *gin.Context) {
	h.respond(c, http.StatusOK, gin.H{"page": "reset-password-token", "token": c.Query("token")})
}

// SearchCharacters maneja GET /search/characters?q=...
func (h *Handlers) SearchCharacters(c *gin.Context) {
	ta := service.NewTypeahead(func(ch domain.Character) string { return ch.CharacterName })
	h.respond(c, http.StatusOK, gin.H{"results": nonNil(ta.Search(h.caches.Characters.Items(), c.Query("q")))})
}

// SearchTags maneja GET /search/tags?q=...
func (h *Handlers) SearchTags(c *gin.Context) {
	ta := service.NewTypeahead(func(t domain.Tag) string { return t.TagName })
	h.respond(c, http.StatusOK, gin.H{"results": nonNil(ta.Search(h.caches.Tags.Items(), c.Query("q")))})
}

// NotFound responde a cualquier ruta desconocida.
func (h *Handlers) NotFound(c *gin.Context) {
	h.respond(c, http.StatusNotFound, gin.H{"page": "not-found", "error": "page not found"})
}

func draftView(d service.MatchDraft) gin.H {
	return gin.H{
		"userId":          d.Match.UserID,
		"userCharacterId": d.Match.UserCharacterID,
		"userGsp":         d.UserGsp,
	}
}

func parseDay(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseID(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
