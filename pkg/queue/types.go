package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task is one unit of queued work.
type Task struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	NeedsDB    bool            `json:"needs_db,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// taskName derives the handler-registry key from the payload's type, so a
// payload struct and its handler pair up without string constants.
func taskName(v any) string {
	return strings.TrimLeft(fmt.Sprintf("%T", v), "*")
}
