package service

import (
	"fmt"
	"strings"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/models"
)

func requireRole(actor models.Actor, op string, roles ...string) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%s requires role %s: %w", op, strings.Join(roles, " or "), models.ErrForbidden)
}

func requireEmployee(actor models.Actor, op string) error {
	return requireRole(actor, op, domain.RoleEmployee)
}

func stringPtr(s string) *string {
	return &s
}

// SystemActor identifies an automated settlement source (webhook, worker, operator CLI).
func SystemActor(source string) models.Actor {
	return models.Actor{
		Email: source + "@system.local",
		Name:  source,
		Role:  domain.RoleSystem,
	}
}
