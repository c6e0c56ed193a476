package reconcile

import (
	"context"

	"hostel-admissions/internal/models"
)

// All key arguments are already normalized with identity.Normalize.

// UserSource finds parent accounts by contact.
type UserSource interface {
	ParentsByMobile(ctx context.Context, key string) ([]models.User, error)
}

// StudentSource resolves resident records. StudentsByIDs matches either the
// student id or the student's user id.
type StudentSource interface {
	StudentsByIDs(ctx context.Context, ids []string) ([]models.Student, error)
	StudentsByGuardianMobile(ctx context.Context, key string) ([]models.Student, error)
}

// ApplicationSource matches applications on father or mother mobile.
type ApplicationSource interface {
	ApplicationsByGuardianMobile(ctx context.Context, key string) ([]models.Application, error)
}

// AllocationSource resolves room allocations.
type AllocationSource interface {
	ActiveAllocations(ctx context.Context, studentIDs, applicationIDs []string) ([]models.Allocation, error)
	RoomsByIDs(ctx context.Context, ids []string) ([]models.Room, error)
}

// Sources bundles the collaborators the engine reads from.
type Sources struct {
	Users        UserSource
	Students     StudentSource
	Applications ApplicationSource
	Allocations  AllocationSource
}
