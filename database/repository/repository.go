package repository

import (
	bookingRepo "meetsync/database/repository/booking"
)

// Re-export the MeetingBookingRepository interface and constructor.
type MeetingBookingRepository = bookingRepo.MeetingBookingRepository

var NewMongoBookingRepo = bookingRepo.NewMongoBookingRepo

var ErrBookingNotFound = bookingRepo.ErrBookingNotFound
