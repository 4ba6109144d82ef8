package events

import (
	"context"

	"github.com/google/uuid"
)

// Event names published to the inventory topic.
const (
	NameRequestCreated         = "request-created"
	NameRequestReviewed        = "request-reviewed"
	NameRequestCancelled       = "request-cancelled"
	NameAdditionRequestCreated = "tool-addition-request-created"
	NameToolCreated            = "tool-created"
	NameToolAssigned           = "tool-assigned"
	NameToolReturned           = "tool-returned"
	NameMaintenanceScheduled   = "maintenance-scheduled"
	NameMaintenanceUpdated     = "maintenance-updated"
	NameUserDeactivated        = "user-deactivated"
	NameCustomNotification     = "custom-notification"
)

// Audience narrows who a dashboard event is intended for. An empty
// audience means broadcast.
type Audience struct {
	Roles   []string    `json:"roles,omitempty"`
	UserIDs []uuid.UUID `json:"userIds,omitempty"`
}

// Broadcast is the catch-all audience.
var Broadcast = Audience{}

// ForRoles targets every user holding one of the given roles.
func ForRoles(roles ...string) Audience {
	return Audience{Roles: roles}
}

// ForUser targets a single user.
func ForUser(id uuid.UUID) Audience {
	return Audience{UserIDs: []uuid.UUID{id}}
}

// Event is the envelope pushed to the realtime dashboard feed.
type Event struct {
	Name     string   `json:"name"`
	Payload  any      `json:"payload"`
	Audience Audience `json:"audience"`
}

// Publisher delivers events to the external dashboard feed. Delivery is
// best effort; callers log failures but never roll back on them.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
