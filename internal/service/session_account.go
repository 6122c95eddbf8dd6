package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"smush/internal/domain"
)

const minPasswordLength = 8

type userData struct {
	User           *domain.User           `json:"user"`
	UserCharacters []domain.UserCharacter `json:"userCharacters"`
}

// merge aplica sobre current los campos que confirmó el servidor.
func (d userData) merge(current *domain.User) *domain.User {
	next := d.User.Clone()
	if next == nil {
		next = current.Clone()
	}
	if d.UserCharacters != nil {
		next.UserCharacters = d.UserCharacters
	} else if next.UserCharacters == nil && current != nil {
		next.UserCharacters = current.Clone().UserCharacters
	}
	if current != nil {
		// Los roles son de sólo lectura y el servidor no siempre los reenvía.
		if len(next.UserRoles) == 0 {
			next.UserRoles = current.Clone().UserRoles
		}
		if next.EmailAddress == "" {
			next.EmailAddress = current.EmailAddress
		}
		if next.Created.IsZero() {
			next.Created = current.Created
		}
	}
	return next
}

// Register crea una cuenta. No inicia sesión.
func (m *SessionManager) Register(ctx context.Context, reg domain.Registration) (int64, error) {
	if m == nil || m.api == nil {
		return 0, ErrNotConfigured
	}
	reg.UserName = strings.TrimSpace(reg.UserName)
	reg.EmailAddress = strings.TrimSpace(reg.EmailAddress)

	var warnings []string
	if reg.UserName == "" {
		warnings = append(warnings, "User name is required.")
	}
	if !validEmail(reg.EmailAddress) {
		warnings = append(warnings, "A valid email address is required.")
	}
	warnings = append(warnings, passwordWarnings(reg.Password, reg.ConfirmPassword)...)
	if err := newValidationError(warnings); err != nil {
		return 0, err
	}

	var data struct {
		UserID int64 `json:"userId"`
	}
	if err := m.api.Post(ctx, m.cfg.AuthPath+"/register", reg, &data); err != nil {
		return 0, fmt.Errorf("register: %w", err)
	}
	m.logger.Info("registered user", zap.Int64("user_id", data.UserID))
	return data.UserID, nil
}

// RequestPasswordReset pide al servidor el correo de restablecimiento.
func (m *SessionManager) RequestPasswordReset(ctx context.Context, email string) error {
	if m == nil || m.api == nil {
		return ErrNotConfigured
	}
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return newValidationError([]string{"A valid email address is required."})
	}
	if err := m.api.Post(ctx, m.cfg.AuthPath+"/forgot-password", map[string]string{"userEmail": email}, nil); err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}
	return nil
}

// ResetPassword fija una contraseña nueva usando el token del correo.
func (m *SessionManager) ResetPassword(ctx context.Context, token, password, confirm string) error {
	if m == nil || m.api == nil {
		return ErrNotConfigured
	}
	var warnings []string
	if strings.TrimSpace(token) == "" {
		warnings = append(warnings, "Reset token is missing.")
	}
	warnings = append(warnings, passwordWarnings(password, confirm)...)
	if err := newValidationError(warnings); err != nil {
		return err
	}
	body := map[string]string{"token": strings.TrimSpace(token), "newPassword": password}
	if err := m.api.Post(ctx, m.cfg.AuthPath+"/reset-password", body, nil); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// UpdateUser envía cambios de perfil y adopta lo que confirme el servidor.
func (m *SessionManager) UpdateUser(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	current := m.user.Value()
	if current == nil {
		return nil, ErrNotLoggedIn
	}
	if update.UserID == 0 {
		update.UserID = current.UserID
	}
	update.UserName = strings.TrimSpace(update.UserName)
	update.EmailAddress = strings.TrimSpace(update.EmailAddress)
	if update.UserName == "" {
		return nil, newValidationError([]string{"User name is required."})
	}

	user, err := m.writeUserOp(ctx, m.cfg.UserPath+"/update_profile", update)
	if err != nil {
		m.notifier.Toast(ToastDanger, "Unable to update user information.")
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// UpdateDefaultUserCharacter marca (o con nil desmarca) el personaje default.
func (m *SessionManager) UpdateDefaultUserCharacter(ctx context.Context, userCharacterID *int64) (*domain.User, error) {
	current := m.user.Value()
	if current == nil {
		return nil, ErrNotLoggedIn
	}
	body := struct {
		UserID          int64  `json:"userId"`
		UserCharacterID *int64 `json:"userCharacterId"`
	}{UserID: current.UserID, UserCharacterID: userCharacterID}

	user, err := m.writeUserOp(ctx, m.cfg.UserPath+"/update_default_user_character", body)
	if err != nil {
		return nil, fmt.Errorf("update default user character: %w", err)
	}
	return user, nil
}

func (m *SessionManager) CreateUserCharacter(ctx context.Context, in domain.UserCharacterInput) (*domain.User, error) {
	current := m.user.Value()
	if current == nil {
		return nil, ErrNotLoggedIn
	}
	in.UserID = current.UserID
	in.UserCharacterID = 0
	user, err := m.writeUserOp(ctx, m.cfg.UserPath+"/character/create", in)
	if err != nil {
		return nil, fmt.Errorf("create user character: %w", err)
	}
	return user, nil
}

func (m *SessionManager) UpdateUserCharacter(ctx context.Context, in domain.UserCharacterInput) (*domain.User, error) {
	current := m.user.Value()
	if current == nil {
		return nil, ErrNotLoggedIn
	}
	if current.FindUserCharacter(in.UserCharacterID) == nil {
		return nil, ErrUserCharNotFound
	}
	in.UserID = current.UserID
	user, err := m.writeUserOp(ctx, m.cfg.UserPath+"/character/update", in)
	if err != nil {
		return nil, fmt.Errorf("update user character: %w", err)
	}
	return user, nil
}

func (m *SessionManager) DeleteUserCharacter(ctx context.Context, userCharacterID int64) (*domain.User, error) {
	current := m.user.Value()
	if current == nil {
		return nil, ErrNotLoggedIn
	}
	body := map[string]int64{"userId": current.UserID, "userCharacterId": userCharacterID}
	user, err := m.writeUserOp(ctx, m.cfg.UserPath+"/character/delete", body)
	if err != nil {
		return nil, fmt.Errorf("delete user character: %w", err)
	}
	return user, nil
}

// writeUserOp hace el POST fuera del lock y adopta el usuario devuelto.
func (m *SessionManager) writeUserOp(ctx context.Context, path string, body any) (*domain.User, error) {
	if m.api == nil || m.store == nil {
		return nil, ErrNotConfigured
	}
	var data userData
	if err := m.api.Post(ctx, path, body, &data); err != nil {
		return nil, err
	}

	defer m.user.Flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.user.Value()
	if current == nil {
		return nil, ErrNotLoggedIn
	}
	next := data.merge(current)
	if err := m.writeUser(ctx, next); err != nil {
		m.logger.Warn("persist user failed", zap.Int64("user_id", next.UserID), zap.Error(err))
	}
	m.user.Stage(next)
	return next.Clone(), nil
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func passwordWarnings(password, confirm string) []string {
	var warnings []string
	if len(password) < minPasswordLength {
		warnings = append(warnings, fmt.Sprintf("Password must be at least %d characters.", minPasswordLength))
	}
	if password != confirm {
		warnings = append(warnings, "Passwords do not match.")
	}
	return warnings
}
