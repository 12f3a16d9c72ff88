package types

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ActionType identifies one kind of business action. The set is closed;
// ActionGenericRequest is the passthrough escape hatch for one-off
// integrations that supply their own url/method in the payload.
type ActionType string

const (
	ActionBookingCreate        ActionType = "booking_create"
	ActionBookingCancel        ActionType = "booking_cancel"
	ActionStockUpdate          ActionType = "stock_update"
	ActionSaleRecord           ActionType = "sale_record"
	ActionPrescriptionDispense ActionType = "prescription_dispense"
	ActionMessageSend          ActionType = "message_send"
	ActionGenericRequest       ActionType = "generic_request"
)

// Payload is the opaque key/value body of an action. Only the handler
// registered for the action's type interprets it.
type Payload map[string]any

// QueuedAction is one state-changing operation recorded while offline and
// waiting to be delivered to the backend.
type QueuedAction struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Type      ActionType `json:"type"`
	Payload   Payload    `json:"payload"`
	Label     string     `json:"label"`
	Status    string     `json:"status"`
	Retries   int        `json:"retries"`
	LastError string     `json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	SyncedAt  *time.Time `json:"synced_at,omitempty"`
}

var idSeq atomic.Uint64

// NewActionID builds a store-unique id: millisecond timestamp, a per-process
// monotonic sequence and a random suffix. The padded sequence keeps ids from
// the same millisecond sorting in creation order, so (created_at, id) is a
// stable FIFO key even for back-to-back enqueues.
func NewActionID(now time.Time) string {
	return fmt.Sprintf("%d-%09d-%s", now.UnixMilli(), idSeq.Add(1), uuid.NewString()[:8])
}

// RecentSyncedItem is the immutable history record of one successfully
// delivered action.
type RecentSyncedItem struct {
	ID       string     `json:"id"`
	OwnerID  string     `json:"owner_id"`
	Type     ActionType `json:"type"`
	Label    string     `json:"label"`
	SyncedAt time.Time  `json:"synced_at"`
}

// ActionPatch is a merge-update against a queued action. Nil fields are
// left untouched.
type ActionPatch struct {
	Status    *string
	Retries   *int
	LastError *string
	Label     *string
	Payload   Payload
	SyncedAt  *time.Time
}

// EnqueueRequest is the caller-facing shape accepted by Enqueue. Label is
// optional; a default is derived from Type and Payload when omitted.
type EnqueueRequest struct {
	Type    ActionType `json:"type"`
	Payload Payload    `json:"payload"`
	Label   string     `json:"label,omitempty"`
}

// SyncResult summarises one executor pass over an owner's queue.
type SyncResult struct {
	OwnerID      string    `json:"owner_id"`
	Attempted    int       `json:"attempted"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	Abandoned    int       `json:"abandoned"`
	Skipped      int       `json:"skipped"`
	StoppedEarly bool      `json:"stopped_early"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}
