package store

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tmkoushik/cfgvault-backend/internal/models"
)

// CollectionName is the document collection holding configuration records.
const CollectionName = "configs"

// collection abstracts the document operations the store needs, so the
// listing fallback can be exercised without a live MongoDB.
type collection interface {
	InsertOne(ctx context.Context, doc interface{}) (primitive.ObjectID, error)
	Find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Record, error)
	UpdateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error
	DeleteByID(ctx context.Context, id primitive.ObjectID) error
}

// RecordStore translates record lifecycle intents into document store calls.
type RecordStore struct {
	col collection
}

// NewRecordStore builds a store over the configs collection of db.
func NewRecordStore(db *mongo.Database) *RecordStore {
	return &RecordStore{col: &mongoCollection{col: db.Collection(CollectionName)}}
}

// newRecordStoreWith is the seam used by tests.
func newRecordStoreWith(col collection) *RecordStore {
	return &RecordStore{col: col}
}

// Create inserts a new record, stamping created_at/updated_at, and returns
// the assigned document identifier.
func (s *RecordStore) Create(ctx context.Context, rec *models.Record) (string, error) {
	now := time.Now().UTC()
	rec.ID = primitive.NewObjectID()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	id, err := s.col.InsertOne(ctx, rec)
	if err != nil {
		return "", classify(err)
	}
	return id.Hex(), nil
}

// ListByOwner returns the owner's records, newest first. When the backing
// index for the ordered query is unavailable, it transparently falls back to
// an unordered query and sorts locally.
func (s *RecordStore) ListByOwner(ctx context.Context, userID string) ([]models.Record, error) {
	filter := bson.M{"user_id": userID}

	ordered := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	records, err := s.col.Find(ctx, filter, ordered)
	if err == nil {
		return records, nil
	}
	if !isIndexError(err) {
		return nil, classify(err)
	}

	log.Println("configs index not available, retrying query without sort")
	records, err = s.col.Find(ctx, filter, options.Find())
	if err != nil {
		return nil, classify(err)
	}

	SortByCreatedAtDesc(records)
	return records, nil
}

// Update replaces the record's mutable fields and bumps updated_at to the
// server's current time. Fields the new access type forbids are unset so no
// stale secret or expiry survives an access-type change.
func (s *RecordStore) Update(ctx context.Context, id string, rec *models.Record) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid record id %q: %w", id, err)
	}

	set := bson.M{
		"name":        rec.Name,
		"config":      rec.Config,
		"access_type": rec.AccessTyp,
		"user_id":     rec.UserID,
		"user_email":  rec.UserEmail,
	}
	unset := bson.M{}

	if rec.Pin != "" {
		set["pin"] = rec.Pin
	} else {
		unset["pin"] = ""
	}
	if rec.ExpiresAt != nil {
		set["expires_at"] = rec.ExpiresAt.UTC()
	} else {
		unset["expires_at"] = ""
	}
	if rec.Otp != "" {
		set["otp"] = rec.Otp
		set["otp_used"] = rec.OtpUsed != nil && *rec.OtpUsed
	} else {
		unset["otp"] = ""
		unset["otp_used"] = ""
	}

	update := bson.M{
		"$set":         set,
		"$currentDate": bson.M{"updated_at": true},
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	if err := s.col.UpdateByID(ctx, oid, update); err != nil {
		return classify(err)
	}
	return nil
}

// Delete permanently removes the record. No tombstone is kept.
func (s *RecordStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid record id %q: %w", id, err)
	}
	if err := s.col.DeleteByID(ctx, oid); err != nil {
		return classify(err)
	}
	return nil
}

// SortByCreatedAtDesc orders records newest first. Records missing a creation
// timestamp sort with the zero time, i.e. last.
func SortByCreatedAtDesc(records []models.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

// mongoCollection adapts *mongo.Collection to the collection interface.
type mongoCollection struct {
	col *mongo.Collection
}

func (m *mongoCollection) InsertOne(ctx context.Context, doc interface{}) (primitive.ObjectID, error) {
	res, err := m.col.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid, nil
}

func (m *mongoCollection) Find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Record, error) {
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var records []models.Record
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (m *mongoCollection) UpdateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := m.col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (m *mongoCollection) DeleteByID(ctx context.Context, id primitive.ObjectID) error {
	_, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// EnsureIndexes creates the compound index backing the ordered owner query.
// Called on startup from main after Mongo has connected. Its absence at query
// time triggers the local-sort fallback rather than a failure.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	col := db.Collection(CollectionName)

	model := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("idx_user_created"),
	}

	_, err := col.Indexes().CreateOne(ctx, model)
	return err
}
