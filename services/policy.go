package services

import (
	"github.com/princinho/moviebackend/apperr"
	"github.com/princinho/moviebackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type Capability int

const (
	// CapAccessOwn covers reading or editing resources that belong to the
	// target user, such as their profile or history.
	CapAccessOwn Capability = iota
	// CapManageAccount covers role and activation changes.
	CapManageAccount
	CapDeleteAccount
	CapListUsers
)

func (c Capability) String() string {
	switch c {
	case CapAccessOwn:
		return "access_own"
	case CapManageAccount:
		return "manage_account"
	case CapDeleteAccount:
		return "delete_account"
	case CapListUsers:
		return "list_users"
	}
	return "unknown"
}

// Authorize is the single access decision for user-scoped operations.
// Moderators carry no privileges beyond a regular user.
func Authorize(actor *models.User, target bson.ObjectID, capability Capability) error {
	if actor == nil {
		return apperr.ErrInsufficientPermissions
	}
	self := actor.ID == target

	switch capability {
	case CapAccessOwn:
		if self || actor.IsAdmin() {
			return nil
		}
		return apperr.ErrResourceAccessDenied
	case CapManageAccount:
		if !actor.IsAdmin() {
			return apperr.ErrInsufficientPermissions
		}
		if self {
			return apperr.ErrSelfModification
		}
		return nil
	case CapDeleteAccount:
		if actor.IsAdmin() {
			if self {
				return apperr.ErrSelfModification
			}
			return nil
		}
		if self {
			return nil
		}
		return apperr.ErrResourceAccessDenied
	case CapListUsers:
		if actor.IsAdmin() {
			return nil
		}
		return apperr.ErrInsufficientPermissions
	}
	return apperr.ErrInsufficientPermissions
}
