package tasks

import (
	"encoding/json"
	"time"

	"meetsync/models"

	"github.com/hibiken/asynq"
)

const TypeMeetingReminder = "reminder:meeting"

// ReminderLeadTime is how long before the meeting start the reminder fires.
const ReminderLeadTime = 15 * time.Minute

// NewMeetingReminderTask builds the delayed reminder task for a confirmed
// booking, scheduled ReminderLeadTime before the meeting starts.
func NewMeetingReminderTask(payload models.ReminderPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeMeetingReminder, b)
	opts := []asynq.Option{asynq.ProcessAt(payload.Interval.Start.Add(-ReminderLeadTime))}

	return task, opts, nil
}
