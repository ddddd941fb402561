package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
)

const mongoCollection = "chats"

// MongoStore implements Repository with one MongoDB document per chat.
type MongoStore struct {
	client *mongo.Client
	chats  *mongo.Collection
}

type mongoPart struct {
	Text  string `bson:"text"`
	Image string `bson:"img,omitempty"`
}

type mongoMessage struct {
	ID        string      `bson:"_id"`
	Role      string      `bson:"role"`
	Parts     []mongoPart `bson:"parts"`
	CreatedAt time.Time   `bson:"createdAt"`
}

type mongoChat struct {
	ID          string         `bson:"_id"`
	OwnerID     string         `bson:"userId"`
	Title       string         `bson:"title"`
	LastMessage string         `bson:"lastMessage"`
	History     []mongoMessage `bson:"history"`
	CreatedAt   time.Time      `bson:"createdAt"`
	UpdatedAt   time.Time      `bson:"updatedAt"`
}

// NewMongoStore connects to uri, verifies the connection and ensures indexes.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "pinging mongodb")
	}

	coll := client.Database(database).Collection(mongoCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "updatedAt", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "creating chats index")
	}

	return &MongoStore{client: client, chats: coll}, nil
}

// Insert stores c as a new document.
func (s *MongoStore) Insert(ctx context.Context, c chat.Chat) error {
	if _, err := s.chats.InsertOne(ctx, toMongoChat(c)); err != nil {
		return errors.Wrap(err, "inserting chat")
	}
	return nil
}

// Get finds the chat document owned by ownerID.
func (s *MongoStore) Get(ctx context.Context, ownerID, chatID string) (chat.Chat, error) {
	var doc mongoChat
	err := s.chats.FindOne(ctx, bson.D{{Key: "_id", Value: chatID}, {Key: "userId", Value: ownerID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return chat.Chat{}, ErrNotFound
	}
	if err != nil {
		return chat.Chat{}, errors.Wrap(err, "querying chat")
	}
	return fromMongoChat(doc, true)
}

// List returns the owner's chats with the history projected out.
func (s *MongoStore) List(ctx context.Context, ownerID string) ([]chat.Chat, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.D{{Key: "history", Value: 0}})

	cursor, err := s.chats.Find(ctx, bson.D{{Key: "userId", Value: ownerID}}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying chats")
	}

	var docs []mongoChat
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding chats")
	}

	chats := make([]chat.Chat, 0, len(docs))
	for _, doc := range docs {
		c, err := fromMongoChat(doc, false)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, nil
}

// Replace swaps the stored document for c.
func (s *MongoStore) Replace(ctx context.Context, c chat.Chat) error {
	result, err := s.chats.ReplaceOne(ctx, bson.D{{Key: "_id", Value: c.ID}, {Key: "userId", Value: c.OwnerID}}, toMongoChat(c))
	if err != nil {
		return errors.Wrap(err, "replacing chat")
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the chat document when owned by ownerID.
func (s *MongoStore) Delete(ctx context.Context, ownerID, chatID string) error {
	result, err := s.chats.DeleteOne(ctx, bson.D{{Key: "_id", Value: chatID}, {Key: "userId", Value: ownerID}})
	if err != nil {
		return errors.Wrap(err, "deleting chat")
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func toMongoChat(c chat.Chat) mongoChat {
	doc := mongoChat{
		ID:          c.ID,
		OwnerID:     c.OwnerID,
		Title:       c.Title,
		LastMessage: c.LastMessage,
		History:     make([]mongoMessage, 0, len(c.History)),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	for _, msg := range c.History {
		parts := make([]mongoPart, 0, len(msg.Parts))
		for _, p := range msg.Parts {
			parts = append(parts, mongoPart{Text: p.Text, Image: p.Image})
		}
		doc.History = append(doc.History, mongoMessage{
			ID:        msg.ID,
			Role:      msg.Role.String(),
			Parts:     parts,
			CreatedAt: msg.CreatedAt,
		})
	}
	return doc
}

func fromMongoChat(doc mongoChat, withHistory bool) (chat.Chat, error) {
	c := chat.Chat{
		ID:          doc.ID,
		OwnerID:     doc.OwnerID,
		Title:       doc.Title,
		LastMessage: doc.LastMessage,
		CreatedAt:   doc.CreatedAt.UTC(),
		UpdatedAt:   doc.UpdatedAt.UTC(),
	}
	if !withHistory {
		return c, nil
	}

	c.History = make([]chat.Message, 0, len(doc.History))
	for _, m := range doc.History {
		role, err := chat.ParseRole(m.Role)
		if err != nil {
			return chat.Chat{}, errors.Wrapf(err, "decoding message %s", m.ID)
		}
		parts := make([]chat.Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			parts = append(parts, chat.Part{Text: p.Text, Image: p.Image})
		}
		c.History = append(c.History, chat.Message{
			ID:        m.ID,
			Role:      role,
			Parts:     parts,
			CreatedAt: m.CreatedAt.UTC(),
		})
	}
	return c, nil
}
