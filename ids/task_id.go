package ids

import "github.com/google/uuid"

// TaskID identifies a single submitted task
type TaskID uuid.UUID

func NewTaskID() TaskID {
	return TaskID(uuid.New())
}

func (t TaskID) String() string {
	return uuid.UUID(t).String()
}

// Short is the first block of the id, enough to tell tasks of one batch apart in logs
func (t TaskID) Short() string {
	return t.String()[:8]
}
