package models

import "time"

type Rol string

const (
	RolTecnico   Rol = "TECNICO"
	RolRecepcion Rol = "RECEPCION"
	RolAdmin     Rol = "ADMIN"
)

var rolTier = map[Rol]int{
	RolTecnico:   1,
	RolRecepcion: 2,
	RolAdmin:     3,
}

func IsValidRol(r Rol) bool {
	_, ok := rolTier[r]
	return ok
}

// HasAtLeast reports whether r grants at least the required tier.
func HasAtLeast(r, required Rol) bool {
	have, ok := rolTier[r]
	if !ok {
		return false
	}
	return have >= rolTier[required]
}

type Usuario struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Nombre       string    `json:"nombre"`
	Rol          Rol       `json:"rol"`
	PasswordHash string    `json:"-"`
	Activo       bool      `json:"activo"`
	CreadoEn     time.Time `json:"creado_en"`
}

// Actor is the resolved identity performing an operation.
type Actor struct {
	UsuarioID string `json:"usuario_id"`
	Rol       Rol    `json:"rol"`
}
