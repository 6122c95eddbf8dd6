package domain

// Character es dato de referencia; sólo la superficie admin lo crea o edita.
type Character struct {
	CharacterID        int64   `json:"characterId,omitempty"`
	CharacterName      string  `json:"characterName"`
	CharacterStockImg  *string `json:"characterStockImg,omitempty"`
	CharacterImg       *string `json:"characterImg,omitempty"`
	CharacterArchetype *string `json:"characterArchetype,omitempty"`
}

// Tag es una etiqueta libre asociable a partidas.
type Tag struct {
	TagID   int64  `json:"tagId,omitempty"`
	TagName string `json:"tagName"`
}

// Ptr devuelve un puntero al valor. Útil para campos opcionales.
func Ptr[T any](v T) *T {
	return &v
}
