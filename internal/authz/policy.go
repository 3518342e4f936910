package authz

import "github.com/stanstork/taller-api/internal/models"

// Policy decides what an actor may do with orders and notifications.
type Policy interface {
	CanCreateOrder(actor models.Actor) bool
	CanMutateOrder(actor models.Actor, o models.Orden) bool
	CanViewNotification(actor models.Actor, n models.Notificacion) bool
}

// RolePolicy grants front desk and admins every order, and technicians only
// the orders assigned to them. Notifications are visible to their owner only.
type RolePolicy struct{}

func NewRolePolicy() RolePolicy { return RolePolicy{} }

func (RolePolicy) CanCreateOrder(actor models.Actor) bool {
	return actor.UsuarioID != "" && models.HasAtLeast(actor.Rol, models.RolRecepcion)
}

func (RolePolicy) CanMutateOrder(actor models.Actor, o models.Orden) bool {
	if actor.UsuarioID == "" {
		return false
	}
	if models.HasAtLeast(actor.Rol, models.RolRecepcion) {
		return true
	}
	return actor.Rol == models.RolTecnico && o.TecnicoID != nil && *o.TecnicoID == actor.UsuarioID
}

func (RolePolicy) CanViewNotification(actor models.Actor, n models.Notificacion) bool {
	return actor.UsuarioID != "" && actor.UsuarioID == n.UsuarioID
}
