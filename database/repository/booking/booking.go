package bookingRepo

import (
	"context"
	"errors"

	"meetsync/database"
	"meetsync/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrBookingNotFound is returned when no booking matches the query.
var ErrBookingNotFound = errors.New("booking not found")

type MeetingBookingRepository interface {
	Create(ctx context.Context, booking models.MeetingBooking) error
	GetByID(ctx context.Context, id string) (*models.MeetingBooking, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.MeetingBooking, error)
	ListByUser(ctx context.Context, userID string) ([]models.MeetingBooking, error)
}

type mongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo builds the repository over the bookings collection.
func NewMongoBookingRepo() MeetingBookingRepository {
	return &mongoBookingRepo{coll: database.Collection("meeting_bookings")}
}

func (r *mongoBookingRepo) Create(ctx context.Context, booking models.MeetingBooking) error {
	_, err := r.coll.InsertOne(ctx, booking)
	return err
}

func (r *mongoBookingRepo) GetByID(ctx context.Context, id string) (*models.MeetingBooking, error) {
	var booking models.MeetingBooking
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&booking)
	if err == mongo.ErrNoDocuments {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *mongoBookingRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.MeetingBooking, error) {
	var booking models.MeetingBooking
	err := r.coll.FindOne(ctx, bson.M{"idempotencyKey": key}).Decode(&booking)
	if err == mongo.ErrNoDocuments {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *mongoBookingRepo) ListByUser(ctx context.Context, userID string) ([]models.MeetingBooking, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var bookings []models.MeetingBooking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}
