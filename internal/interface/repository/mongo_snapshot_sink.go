package repository

import (
	"context"
	"fmt"
	"time"

	"access-reconcile-service/internal/domain/entity"
	"access-reconcile-service/internal/domain/repository"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoSnapshotSink writes run snapshots to MongoDB collections named after
// the SQL tables
type MongoSnapshotSink struct {
	owners *mongo.Collection
	access *mongo.Collection
}

// NewMongoSnapshotSink creates a new MongoDB snapshot sink
func NewMongoSnapshotSink(db *mongo.Database) repository.SnapshotSink {
	owners := db.Collection(ownersTable)
	access := db.Collection(accessTable)

	// Lookups by apartment
	ctx := context.Background()
	owners.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.M{"apartmentId": 1}})
	access.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.M{"apartmentId": 1}})

	return &MongoSnapshotSink{
		owners: owners,
		access: access,
	}
}

// Name returns the sink name used in reports
func (s *MongoSnapshotSink) Name() string {
	return "mongo"
}

// ReplaceSnapshot replaces the owner then the access collection. Writes are
// not transactional: if the access write fails the owner collection
// already holds this run.
func (s *MongoSnapshotSink) ReplaceSnapshot(ctx context.Context, runID string, owners []entity.OwnerRecord, records []entity.ReconciledRecord) error {
	if err := s.ReplaceOwners(ctx, runID, owners); err != nil {
		return err
	}
	return s.ReplaceAccess(ctx, runID, records)
}

// ReplaceOwners deletes every owner document and inserts the given rows
func (s *MongoSnapshotSink) ReplaceOwners(ctx context.Context, runID string, owners []entity.OwnerRecord) error {
	now := time.Now().UTC()
	docs := make([]interface{}, len(owners))
	for i, o := range owners {
		docs[i] = ownerDocument(runID, o, now)
	}
	return replaceCollection(ctx, s.owners, docs)
}

// ReplaceAccess deletes every access document and inserts the given rows
func (s *MongoSnapshotSink) ReplaceAccess(ctx context.Context, runID string, records []entity.ReconciledRecord) error {
	now := time.Now().UTC()
	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = accessDocument(runID, r, now)
	}
	return replaceCollection(ctx, s.access, docs)
}

func replaceCollection(ctx context.Context, coll *mongo.Collection, docs []interface{}) error {
	if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear %s: %w", coll.Name(), err)
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", coll.Name(), err)
	}
	return nil
}

func ownerDocument(runID string, o entity.OwnerRecord, syncedAt time.Time) bson.M {
	return bson.M{
		"runId":          runID,
		"apartmentId":    string(o.ApartmentKey),
		"unitLabel":      o.UnitLabel,
		"ownerName":      o.OwnerName,
		"monthlyFee":     decimal128(o.MonthlyFee),
		"debt":           decimal128(o.Debt),
		"paymentPartner": o.PaymentPartner,
		"sourceRow":      o.SourceRow,
		"syncedAt":       syncedAt,
	}
}

func accessDocument(runID string, r entity.ReconciledRecord, syncedAt time.Time) bson.M {
	g := r.Entry.Grant
	doc := bson.M{
		"runId":          runID,
		"apartmentId":    string(r.Entry.ApartmentKey),
		"rawLabel":       r.Entry.RawLabel,
		"person":         string(r.Entry.Person),
		"grantType":      string(g.Kind),
		"lockId":         g.LockID,
		"lockName":       g.LockName,
		"username":       g.Username,
		"paymentPartner": r.PaymentPartner,
		"ownerConflict":  r.OwnerConflict,
		"syncedAt":       syncedAt,
		"owner":          nil,
	}
	if g.Key != nil {
		doc["keyId"] = g.Key.KeyID
		doc["keyStatus"] = g.Key.Status
	}
	if g.Card != nil {
		doc["cardId"] = g.Card.CardID
		doc["cardNumber"] = g.Card.CardNumber
		doc["validFrom"] = g.Card.ValidFrom
		doc["validTo"] = g.Card.ValidTo
		doc["createdAt"] = g.Card.CreatedAt
	}
	if r.Owner != nil {
		doc["owner"] = bson.M{
			"name":       r.Owner.OwnerName,
			"monthlyFee": decimal128(r.Owner.MonthlyFee),
			"debt":       decimal128(r.Owner.Debt),
		}
	}
	return doc
}

// decimal128 converts a nullable amount; null stays null
func decimal128(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	v, err := primitive.ParseDecimal128(d.Decimal.String())
	if err != nil {
		return d.Decimal.String()
	}
	return v
}
