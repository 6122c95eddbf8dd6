package domain

import (
	"strings"
	"time"
)

// RoleAdministrator es el rol que habilita la superficie /admin.
const RoleAdministrator = "administrator"

// User es el perfil del usuario autenticado tal como lo entrega la API.
type User struct {
	UserID                 int64           `json:"userId"`
	UserName               string          `json:"userName"`
	EmailAddress           string          `json:"emailAddress,omitempty"`
	Created                time.Time       `json:"created"`
	DefaultCharacterID     *int64          `json:"defaultCharacterId,omitempty"`
	DefaultCharacterName   *string         `json:"defaultCharacterName,omitempty"`
	DefaultCharacterGsp    *int64          `json:"defaultCharacterGsp,omitempty"`
	DefaultUserCharacterID *int64          `json:"defaultUserCharacterId,omitempty"`
	UserCharacters         []UserCharacter `json:"userCharacters,omitempty"`
	UserRoles              []Role          `json:"userRoles,omitempty"`
}

// UserCharacter asocia un personaje al usuario con su GSP y su traje alternativo.
type UserCharacter struct {
	UserCharacterID   int64   `json:"userCharacterId"`
	UserID            int64   `json:"userId"`
	CharacterID       int64   `json:"characterId"`
	CharacterName     string  `json:"characterName,omitempty"`
	CharacterGsp      *int64  `json:"characterGsp,omitempty"`
	AltCostume        *int64  `json:"altCostume,omitempty"`
	CharacterImg      *string `json:"characterImg,omitempty"`
	CharacterStockImg *string `json:"characterStockImg,omitempty"`
}

// Role es un rol asignado al usuario. Solo lectura para el cliente.
type Role struct {
	UserRoleID int64  `json:"userRoleId"`
	UserID     int64  `json:"userId"`
	RoleID     int64  `json:"roleId"`
	RoleName   string `json:"roleName"`
}

// HasRole indica si el usuario tiene el rol indicado (sin distinguir mayúsculas).
func (u *User) HasRole(name string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.UserRoles {
		if strings.EqualFold(r.RoleName, name) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdministrator)
}

// DefaultUserCharacter devuelve el personaje marcado como default, si existe.
func (u *User) DefaultUserCharacter() *UserCharacter {
	if u == nil || u.DefaultUserCharacterID == nil {
		return nil
	}
	return u.FindUserCharacter(*u.DefaultUserCharacterID)
}

func (u *User) FindUserCharacter(userCharacterID int64) *UserCharacter {
	if u == nil {
		return nil
	}
	for i := range u.UserCharacters {
		if u.UserCharacters[i].UserCharacterID == userCharacterID {
			return &u.UserCharacters[i]
		}
	}
	return nil
}

// HasCharacter indica si el usuario ya guardó ese personaje.
func (u *User) HasCharacter(characterID int64) bool {
	if u == nil {
		return false
	}
	for _, uc := range u.UserCharacters {
		if uc.CharacterID == characterID {
			return true
		}
	}
	return false
}

// Clone copia el usuario sin compartir slices ni punteros con el original.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.DefaultCharacterID = cloneInt64(u.DefaultCharacterID)
	c.DefaultCharacterName = cloneString(u.DefaultCharacterName)
	c.DefaultCharacterGsp = cloneInt64(u.DefaultCharacterGsp)
	c.DefaultUserCharacterID = cloneInt64(u.DefaultUserCharacterID)
	if u.UserCharacters != nil {
		c.UserCharacters = make([]UserCharacter, len(u.UserCharacters))
		for i, uc := range u.UserCharacters {
			uc.CharacterGsp = cloneInt64(uc.CharacterGsp)
			uc.AltCostume = cloneInt64(uc.AltCostume)
			uc.CharacterImg = cloneString(uc.CharacterImg)
			uc.CharacterStockImg = cloneString(uc.CharacterStockImg)
			c.UserCharacters[i] = uc
		}
	}
	if u.UserRoles != nil {
		c.UserRoles = append([]Role(nil), u.UserRoles...)
	}
	return &c
}

// Credentials son los datos del formulario de login.
type Credentials struct {
	Email    string `json:"emailAddress"`
	Password string `json:"password"`
}

// Registration son los datos del formulario de registro.
type Registration struct {
	UserName        string `json:"userName"`
	EmailAddress    string `json:"emailAddress"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

// ProfileUpdate es el cambio de perfil enviado a update_profile.
type ProfileUpdate struct {
	UserID       int64  `json:"userId"`
	UserName     string `json:"userName"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

// UserCharacterInput crea o actualiza un UserCharacter.
type UserCharacterInput struct {
	UserCharacterID int64  `json:"userCharacterId,omitempty"`
	UserID          int64  `json:"userId"`
	CharacterID     int64  `json:"characterId"`
	CharacterGsp    *int64 `json:"characterGsp"`
	AltCostume      *int64 `json:"altCostume"`
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
