// Package mongo provides the MongoDB-backed persistence gateway and the
// Docker lifecycle manager for the database container.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mkandasamy/deedflow/internal/model"
	"github.com/mkandasamy/deedflow/internal/store"
)

const (
	// DefaultDatabase is the database name used when none is configured.
	DefaultDatabase = "deedflow"

	documentsCollection = "documents"
)

// Store implements store.Gateway on MongoDB. Documents embed their pages,
// matching the shape of the API's document responses.
type Store struct {
	client *mongo.Client
	docs   *mongo.Collection
}

var _ store.Gateway = (*Store)(nil)

// Connect creates a Store connected to the given MongoDB URI and verifies
// the connection with a ping.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetServerSelectionTimeout(10 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	s := &Store{
		client: client,
		docs:   client.Database(database).Collection(documentsCollection),
	}

	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}

	return s, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) CreateDocument(ctx context.Context, doc *model.Document) error {
	if doc.Pages == nil {
		doc.Pages = []model.Page{}
	}
	// Upsert by id keeps the operation idempotent on identical input.
	_, err := s.docs.ReplaceOne(ctx,
		bson.M{"_id": doc.ID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (s *Store) UpdateDocumentStatus(ctx context.Context, id string, status model.Status) error {
	return s.updateDoc(ctx, id, bson.M{"status": status})
}

func (s *Store) SetDocumentSummary(ctx context.Context, id string, summary string) error {
	return s.updateDoc(ctx, id, bson.M{"summary": summary})
}

func (s *Store) SetTotalPages(ctx context.Context, id string, total int) error {
	return s.updateDoc(ctx, id, bson.M{"total_pages": total})
}

func (s *Store) CreatePage(ctx context.Context, documentID string, page model.Page) error {
	// Replace an existing page with the same number, otherwise append.
	res, err := s.docs.UpdateOne(ctx,
		bson.M{"_id": documentID, "pages.page_number": page.PageNumber},
		bson.M{
			"$set": bson.M{"pages.$": page, "updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	res, err = s.docs.UpdateOne(ctx,
		bson.M{"_id": documentID},
		bson.M{
			"$push": bson.M{"pages": page},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *Store) UpdatePage(ctx context.Context, documentID string, page model.Page) error {
	res, err := s.docs.UpdateOne(ctx,
		bson.M{"_id": documentID, "pages.page_number": page.PageNumber},
		bson.M{
			"$set": bson.M{"pages.$": page, "updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := s.docs.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (s *Store) ListPages(ctx context.Context, documentID string) ([]model.Page, error) {
	doc, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return doc.Pages, nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.docs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

// updateDoc applies a $set update to a document by id.
func (s *Store) updateDoc(ctx context.Context, id string, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.docs.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}
