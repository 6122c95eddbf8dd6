package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"smush/internal/domain"
)

// ProfileService orquesta la edición del perfil y propaga los cambios a los
// caches que copian datos del usuario.
type ProfileService struct {
	logger   *zap.Logger
	session  *SessionManager
	matches  *MatchCache
	users    *UserDirectory
	notifier Notifier
}

func NewProfileService(logger *zap.Logger, session *SessionManager, matches *MatchCache, users *UserDirectory, notifier Notifier) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &ProfileService{logger: logger, session: session, matches: matches, users: users, notifier: notifier}
}

// UpdateProfile guarda nombre y correo y reescribe el nombre en las partidas
// cacheadas sin recargarlas.
func (s *ProfileService) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	user, err := s.session.UpdateUser(ctx, update)
	if err != nil {
		return nil, err
	}
	if s.matches != nil {
		s.matches.SyncUserName(user)
	}
	if s.users != nil {
		s.users.SyncUserName(user)
	}
	s.notifier.Toast(ToastStandard, "User information updated!")
	return user, nil
}

// AddUserCharacter guarda un personaje nuevo del usuario.
func (s *ProfileService) AddUserCharacter(ctx context.Context, in domain.UserCharacterInput) (*domain.User, error) {
	current := s.session.Current()
	if current == nil {
		return nil, ErrNotLoggedIn
	}
	if in.CharacterID == 0 {
		return nil, s.warn("Please select a character before adding a user character.")
	}
	if current.HasCharacter(in.CharacterID) {
		return nil, s.warn("This user character already exists.")
	}
	user, err := s.session.CreateUserCharacter(ctx, in)
	if err != nil {
		s.notifier.Toast(ToastDanger, "Unable to add user character.")
		return nil, err
	}
	s.notifier.Toast(ToastSuccess, "User character added!")
	return user, nil
}

// UpdateUserCharacter cambia GSP o traje y lo propaga a las partidas.
func (s *ProfileService) UpdateUserCharacter(ctx context.Context, in domain.UserCharacterInput) (*domain.User, error) {
	user, err := s.session.UpdateUserCharacter(ctx, in)
	if err != nil {
		s.notifier.Toast(ToastDanger, "Unable to update user character.")
		return nil, err
	}
	if s.matches != nil {
		s.matches.SyncAltCostume(user)
	}
	s.notifier.Toast(ToastSuccess, "User character updated!")
	return user, nil
}

func (s *ProfileService) DeleteUserCharacter(ctx context.Context, userCharacterID int64) (*domain.User, error) {
	user, err := s.session.DeleteUserCharacter(ctx, userCharacterID)
	if err != nil {
		s.notifier.Toast(ToastDanger, "Unable to delete user character.")
		return nil, err
	}
	s.notifier.Toast(ToastSuccess, "User character deleted!")
	return user, nil
}

// SetDefaultUserCharacter marca el personaje default del usuario.
func (s *ProfileService) SetDefaultUserCharacter(ctx context.Context, userCharacterID int64) (*domain.User, error) {
	current := s.session.Current()
	if current == nil {
		return nil, ErrNotLoggedIn
	}
	if current.FindUserCharacter(userCharacterID) == nil {
		return nil, fmt.Errorf("set default %d: %w", userCharacterID, ErrUserCharNotFound)
	}
	return s.updateDefault(ctx, &userCharacterID)
}

func (s *ProfileService) UnsetDefaultUserCharacter(ctx context.Context) (*domain.User, error) {
	return s.updateDefault(ctx, nil)
}

func (s *ProfileService) updateDefault(ctx context.Context, id *int64) (*domain.User, error) {
	user, err := s.session.UpdateDefaultUserCharacter(ctx, id)
	if err != nil {
		s.notifier.Toast(ToastDanger, "Unable to update default character.")
		return nil, err
	}
	s.notifier.Toast(ToastSuccess, "Default character updated!")
	return user, nil
}

func (s *ProfileService) warn(message string) error {
	s.notifier.Toast(ToastWarning, message)
	return newValidationError([]string{message})
}
