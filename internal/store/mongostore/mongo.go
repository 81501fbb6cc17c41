// Package mongostore implements store.Store on a MongoDB collection.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/starford/dock/internal/apperr"
	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/store"
)

// CollectionName is the collection holding every record.
const CollectionName = "records"

// Repo is a MongoDB-backed record store.
type Repo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ store.Store = (*Repo)(nil)

// Connect dials uri, verifies the connection and prepares the records
// collection of database dbName.
func Connect(ctx context.Context, uri, dbName string) (*Repo, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	r := &Repo{client: client, coll: client.Database(dbName).Collection(CollectionName)}
	if err := r.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return r, nil
}

// EnsureIndexes creates the per-user id and recency indexes.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "type", Value: 1}, {Key: "status", Value: 1}},
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("mongo: create indexes: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (r *Repo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// document is the BSON shape of a record.
type document struct {
	ID          string            `bson:"id"`
	UserID      string            `bson:"user_id"`
	Type        string            `bson:"type"`
	Title       string            `bson:"title"`
	Body        string            `bson:"body"`
	ContentJSON bson.M            `bson:"content_json,omitempty"`
	Items       []models.ListItem `bson:"items"`
	Tags        []string          `bson:"tags"`
	Status      string            `bson:"status"`
	IsDraft     bool              `bson:"is_draft"`
	Source      string            `bson:"source"`
	Meta        bson.M            `bson:"meta,omitempty"`
	CreatedAt   time.Time         `bson:"created_at"`
	UpdatedAt   time.Time         `bson:"updated_at"`
}

func toDocument(rec *models.Record) document {
	items := rec.Items
	if items == nil {
		items = []models.ListItem{}
	}
	return document{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Type:        string(rec.Type),
		Title:       rec.Title,
		Body:        rec.Body,
		ContentJSON: rec.ContentJSON,
		Items:       items,
		Tags:        rec.Tags,
		Status:      string(rec.Status),
		IsDraft:     rec.IsDraft,
		Source:      rec.Source,
		Meta:        rec.Meta,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func (d document) record() (*models.Record, error) {
	rec := &models.Record{
		ID:        d.ID,
		UserID:    d.UserID,
		Type:      models.ItemType(d.Type),
		Title:     d.Title,
		Body:      d.Body,
		Items:     d.Items,
		Tags:      d.Tags,
		Status:    models.Status(d.Status),
		IsDraft:   d.IsDraft,
		Source:    d.Source,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	var err error
	if rec.ContentJSON, err = plainMap(d.ContentJSON); err != nil {
		return nil, fmt.Errorf("content_json: %w", err)
	}
	if rec.Meta, err = plainMap(d.Meta); err != nil {
		return nil, fmt.Errorf("meta: %w", err)
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	if len(rec.Items) == 0 {
		rec.Items = nil
	}
	return rec, nil
}

// plainMap converts decoded BSON (primitive.M / primitive.A values) into the
// map[string]any / []any shapes produced by encoding/json.
func plainMap(m bson.M) (map[string]any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func scope(userID, id string) bson.M {
	return bson.M{"user_id": userID, "id": id}
}

// Create inserts rec.
func (r *Repo) Create(ctx context.Context, userID string, rec *models.Record) (string, error) {
	store.Prepare(userID, rec, store.Now())
	if _, err := r.coll.InsertOne(ctx, toDocument(rec)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("mongo: create %s: %w", rec.ID, apperr.ErrAlreadyExists)
		}
		return "", fmt.Errorf("mongo: create: %w", err)
	}
	return rec.ID, nil
}

// List returns the user's records matching f, most recently updated first.
func (r *Repo) List(ctx context.Context, userID string, f models.Filter) ([]models.Record, error) {
	filter := bson.M{"user_id": userID}
	if f.Type != "" {
		filter["type"] = string(f.Type)
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.Source != "" {
		filter["source"] = f.Source
	}

	opts := options.Find().
		SetLimit(int64(store.NormalizeLimit(f.Limit))).
		SetSkip(int64(max(f.Offset, 0))).
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "created_at", Value: -1}, {Key: "id", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: list: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode records: %w", err)
	}
	out := make([]models.Record, 0, len(docs))
	for _, d := range docs {
		rec, err := d.record()
		if err != nil {
			return nil, fmt.Errorf("mongo: decode %s: %w", d.ID, err)
		}
		out = append(out, *rec)
	}
	return out, nil
}

// Get returns one record.
func (r *Repo) Get(ctx context.Context, userID, id string) (*models.Record, error) {
	var d document
	err := r.coll.FindOne(ctx, scope(userID, id)).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: get %s: %w", id, err)
	}
	return d.record()
}

// Update applies p with $set and moves updated_at forward with $max.
func (r *Repo) Update(ctx context.Context, userID, id string, p models.Patch) error {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Body != nil {
		set["body"] = *p.Body
	}
	unset := bson.M{}
	if p.ContentJSON != nil {
		if len(*p.ContentJSON) == 0 {
			unset["content_json"] = ""
		} else {
			set["content_json"] = *p.ContentJSON
		}
	}
	if p.Items != nil {
		items := *p.Items
		if items == nil {
			items = []models.ListItem{}
		}
		set["items"] = items
	}
	if p.Tags != nil {
		set["tags"] = *p.Tags
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}
	if p.IsDraft != nil {
		set["is_draft"] = *p.IsDraft
	}
	if p.Meta != nil {
		set["meta"] = *p.Meta
	}

	update := bson.M{"$max": bson.M{"updated_at": store.Now()}}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	res, err := r.coll.UpdateOne(ctx, scope(userID, id), update)
	if err != nil {
		return fmt.Errorf("mongo: update %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// SoftDelete sets the record status to deleted.
func (r *Repo) SoftDelete(ctx context.Context, userID, id string) error {
	deleted := models.StatusDeleted
	return r.Update(ctx, userID, id, models.Patch{Status: &deleted})
}

// Delete removes the record.
func (r *Repo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.coll.DeleteOne(ctx, scope(userID, id))
	if err != nil {
		return fmt.Errorf("mongo: delete %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
