package models

import "time"

// MeetingBooking is the persisted record of a confirmed booking.
type MeetingBooking struct {
	ID              string       `bson:"id" json:"id"`
	SessionID       string       `bson:"sessionId" json:"sessionId"`
	UserID          string       `bson:"userId" json:"userId"`
	Title           string       `bson:"title" json:"title"`
	Interval        TimeInterval `bson:"interval" json:"interval"`
	MeetingType     string       `bson:"meetingType,omitempty" json:"meetingType,omitempty"`
	CalendarEventID string       `bson:"calendarEventId" json:"calendarEventId"`
	IdempotencyKey  string       `bson:"idempotencyKey" json:"idempotencyKey"`
	CreatedAt       time.Time    `bson:"createdAt" json:"createdAt"`
}
