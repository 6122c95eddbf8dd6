package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smush/internal/domain"
	"smush/internal/service"
)

// Login maneja POST /actions/login.
func (h *Handlers) Login(c *gin.Context) {
	var req struct {
		EmailAddress string `json:"emailAddress" binding:"required"`
		Password     string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "login", err)
		return
	}
	user, err := h.session.LogIn(c.Request.Context(), domain.Credentials{Email: req.EmailAddress, Password: req.Password})
	if err != nil {
		h.fail(c, "log in", err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"user": user})
}

// Logout maneja POST /actions/logout.
func (h *Handlers) Logout(c *gin.Context) {
	h.session.LogOut(c.Request.Context())
	h.respond(c, http.StatusOK, gin.H{"redirect": service.RouteHome})
}

// Register maneja POST /actions/register.
func (h *Handlers) Register(c *gin.Context) {
	var req struct {
		UserName        string `json:"userName"`
		EmailAddress    string `json:"emailAddress"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "register", err)
		return
	}
	id, err := h.session.Register(c.Request.Context(), domain.Registration{
		UserName:        req.UserName,
		EmailAddress:    req.EmailAddress,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.fail(c, "register", err)
		return
	}
	h.respond(c, http.StatusCreated, gin.H{"userId": id})
}

// RequestPasswordReset maneja POST /actions/reset-password/request.
func (h *Handlers) RequestPasswordReset(c *gin.Context) {
	var req struct {
		UserEmail string `json:"userEmail" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "password reset", err)
		return
	}
	if err := h.session.RequestPasswordReset(c.Request.Context(), req.UserEmail); err != nil {
		h.fail(c, "request password reset", err)
		return
	}
	h.respond(c, http.StatusAccepted, gin.H{"status": "reset_requested"})
}

// ResetPassword maneja POST /actions/reset-password/token.
func (h *Handlers) ResetPassword(c *gin.Context) {
	var req struct {
		Token           string `json:"token"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "password reset", err)
		return
	}
	if err := h.session.ResetPassword(c.Request.Context(), req.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		h.fail(c, "reset password", err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"status": "password_reset"})
}

type matchRequest struct {
	OpponentCharacterID int64   `json:"opponentCharacterId"`
	UserCharacterID     *int64  `json:"userCharacterId"`
	UserGsp             *string `json:"userGsp"`
	OpponentGsp         string  `json:"opponentGsp"`
	UserWin             *bool   `json:"userWin"`
	OpponentTeabag      *bool   `json:"opponentTeabag"`
	OpponentCamp        *bool   `json:"opponentCamp"`
	OpponentAwesome     *bool   `json:"opponentAwesome"`
	TagIDs              []int64 `json:"tagIds"`
}

// CreateMatch maneja POST /actions/matches.
func (h *Handlers) CreateMatch(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "create match", err)
		return
	}

	draft := h.form.NewDraft()
	draft.Match.OpponentCharacterID = req.OpponentCharacterID
	if req.UserCharacterID != nil {
		draft.Match.UserCharacterID = req.UserCharacterID
	}
	if req.UserGsp != nil {
		draft.UserGsp = *req.UserGsp
	}
	draft.OpponentGsp = req.OpponentGsp
	draft.Match.UserWin = req.UserWin
	draft.Match.OpponentTeabag = req.OpponentTeabag
	draft.Match.OpponentCamp = req.OpponentCamp
	draft.Match.OpponentAwesome = req.OpponentAwesome
	for _, id := range req.TagIDs {
		if tag, ok := h.caches.Tags.Find(id); ok {
			draft.AddTag(tag)
		}
	}

	match, _, err := h.form.Record(c.Request.Context(), draft)
	if err != nil {
		h.fail(c, "create match", err)
		return
	}
	h.respond(c, http.StatusCreated, gin.H{"match": match})
}

// UpdateMatch maneja POST /actions/matches/update.
func (h *Handlers) UpdateMatch(c *gin.Context) {
	var m domain.Match
	if err := c.ShouldBindJSON(&m); err != nil || m.MatchID == 0 {
		h.badRequest(c, "update match", err)
		return
	}
	existing, ok := h.caches.Matches.Find(m.MatchID)
	if !ok {
		h.respond(c, http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}
	m.UserID = existing.UserID
	m.Created = existing.Created

	updated, err := h.caches.Matches.Update(c.Request.Context(), m)
	if err != nil {
		h.notices.Toast(service.ToastDanger, "Unable to update match.")
		h.fail(c, "update match", err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"match": updated})
}

// DeleteMatch maneja POST /actions/matches/delete.
func (h *Handlers) DeleteMatch(c *gin.Context) {
	var req struct {
		MatchID int64 `json:"matchId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "delete match", err)
		return
	}
	if err := h.caches.Matches.Delete(c.Request.Context(), req.MatchID); err != nil {
		h.notices.Toast(service.ToastDanger, "Unable to delete match.")
		h.fail(c, "delete match", err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"status": "deleted"})
}

// UpdateProfile maneja POST /actions/profile.
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req domain.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "update profile", err)
		return
	}
	user, err := h.profile.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "update profile", err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"user": user})
}

type userCharacterRequest struct {
	UserCharacterID int64   `json:"userCharacterId"`
	CharacterID     int64   `json:"characterId"`
	CharacterGsp    *string `json:"characterGsp"`
	AltCostume      *int64  `json:"altCostume"`
}

func (r userCharacterRequest) input() (domain.UserCharacterInput, error) {
	in := domain.UserCharacterInput{
		UserCharacterID: r.UserCharacterID,
		CharacterID:     r.CharacterID,
		AltCostume:      r.AltCostume,
	}
	if r.CharacterGsp != nil {
		gsp, err := service.ParseGsp(*r.CharacterGsp)
		if err != nil {
			return in, err
		}
		in.CharacterGsp = gsp
	}
	return in, nil
}

// AddUserCharacter maneja POST /actions/profile/characters.
func (h *Handlers) AddUserCharacter(c *gin.Context) {
	h.userCharacterWrite(c, "add user character", h.profile.AddUserCharacter)
}

// UpdateUserCharacter maneja POST /actions/profile/characters/update.
func (h *Handlers) UpdateUserCharacter(c *gin.Context) {
	h.userCharacterWrite(c, "update user character", h.profile.UpdateUserCharacter)
}

func (h *Handlers) userCharacterWrite(c *gin.Context, op string, write func(ctx context.Context, in domain.UserCharacterInput) (*domain.User, error)) {
	var req userCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, op, err)
		return
	}
	in, err := req.input()
	if err != nil {
		h.badRequest(c, op, err)
		return
	}
	user, err := write(c.Request.Context(), in)
	if err != nil {
		h.fail(c, op, err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"user": user})
}

// DeleteUserCharacter maneja POST /actions/profile/characters/delete.
func (h *Handlers) DeleteUserCharacter(c *gin.Context) {
	var req struct {
		UserCharacterID int64 `json:"userCharacterId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "delete user character", err)
		return
	}
	user, err := h.profile.DeleteUserCharacter(c.Request.Context(), req.UserCharacterID)
	if err != nil {
		h.fail(c, "delete user character", err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"user": user})
}

// SetDefaultUserCharacter maneja POST /actions/profile/characters/default.
// userCharacterId nulo quita el default.
func (h *Handlers) SetDefaultUserCharacter(c *gin.Context) {
	var req struct {
		UserCharacterID *int64 `json:"userCharacterId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "set default user character", err)
		return
	}
	var (
		user *domain.User
		err  error
	)
	if req.UserCharacterID == nil {
		user, err = h.profile.UnsetDefaultUserCharacter(c.Request.Context())
	} else {
		user, err = h.profile.SetDefaultUserCharacter(c.Request.Context(), *req.UserCharacterID)
	}
	if err != nil {
		h.fail(c, "set default user character", err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"user": user})
}

// SaveTag maneja POST /actions/admin/tags (alta si no trae tagId).
func (h *Handlers) SaveTag(c *gin.Context) {
	var tag domain.Tag
	if err := c.ShouldBindJSON(&tag); err != nil || tag.TagName == "" {
		h.badRequest(c, "save tag", err)
		return
	}
	saved, err := saveEntity(c, h.caches.Tags, tag, tag.TagID)
	if err != nil {
		h.notices.Toast(service.ToastDanger, "Unable to save tag.")
		h.fail(c, "save tag", err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"tag": saved})
}

// DeleteTag maneja POST /actions/admin/tags/delete.
func (h *Handlers) DeleteTag(c *gin.Context) {
	var req struct {
		TagID int64 `json:"tagId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "delete tag", err)
		return
	}
	if err := h.caches.Tags.Delete(c.Request.Context(), req.TagID); err != nil {
		h.notices.Toast(service.ToastDanger, "Unable to delete tag.")
		h.fail(c, "delete tag", err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"status": "deleted"})
}

// SaveCharacter maneja POST /actions/admin/characters.
func (h *Handlers) SaveCharacter(c *gin.Context) {
	var ch domain.Character
	if err := c.ShouldBindJSON(&ch); err != nil || ch.CharacterName == "" {
		h.badRequest(c, "save character", err)
		return
	}
	saved, err := saveEntity(c, h.caches.Characters, ch, ch.CharacterID)
	if err != nil {
		h.notices.Toast(service.ToastDanger, "Unable to save character.")
		h.fail(c, "save character", err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"character": saved})
}

// DeleteCharacter maneja POST /actions/admin/characters/delete.
func (h *Handlers) DeleteCharacter(c *gin.Context) {
	var req struct {
		CharacterID int64 `json:"characterId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "delete character", err)
		return
	}
	if err := h.caches.Characters.Delete(c.Request.Context(), req.CharacterID); err != nil {
		h.notices.Toast(service.ToastDanger, "Unable to delete character.")
		h.fail(c, "delete character", err)
		return
	}
	h.respond(c, http.StatusOK, gin.H{"status": "deleted"})
}

// DeleteUser maneja POST /actions/admin/users/delete.
func (h *Handlers) DeleteUser(c *gin.Context) {
	var req struct {
		UserID int64 `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "delete user", err)
		return
	}
	if session, ok := GetSession(c); ok && session.User != nil && session.User.UserID == req.UserID {
		h.respond(c, http.StatusBadRequest, gin.H{"error": "cannot delete the logged in user"})
		return
	}
	if err := h.caches.Users.Delete(c.Request.Context(), req.UserID); err != nil {
		h.notices.Toast(service.ToastDanger, "Unable to delete user.")
		h.fail(c, "delete user", err)
		return
	}
	h.logger.Info("user deleted", zap.Int64("user_id", req.UserID))
	h.respond(c, http.StatusOK, gin.H{"status": "deleted"})
}

func saveEntity[T any](c *gin.Context, cache *service.EntityCache[T], item T, id int64) (T, error) {
	if id == 0 {
		return cache.Create(c.Request.Context(), item)
	}
	return cache.Update(c.Request.Context(), item)
}
