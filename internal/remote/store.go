package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zombor/pantry-manager/internal/pantry"
)

// ErrNotFound is returned when a user has no document of the requested kind
var ErrNotFound = errors.New("document not found")

const (
	profilesCollection    = "profiles"
	addressesCollection   = "addresses"
	permissionsCollection = "permissions"
)

// Profile is the user's account information
type Profile struct {
	UserID        string    `bson:"user_id" json:"user_id"`
	Name          string    `bson:"name" json:"name"`
	Email         string    `bson:"email" json:"email,omitempty"`
	Phone         string    `bson:"phone" json:"phone,omitempty"`
	HouseholdSize int       `bson:"household_size" json:"household_size,omitempty"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// Address is the user's delivery address
type Address struct {
	UserID       string    `bson:"user_id" json:"user_id"`
	CEP          string    `bson:"cep" json:"cep"`
	Street       string    `bson:"street" json:"street"`
	Number       string    `bson:"number" json:"number,omitempty"`
	Complement   string    `bson:"complement" json:"complement,omitempty"`
	Neighborhood string    `bson:"neighborhood" json:"neighborhood"`
	City         string    `bson:"city" json:"city"`
	State        string    `bson:"state" json:"state"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// Permissions records what the user allowed the app to use
type Permissions struct {
	UserID        string    `bson:"user_id" json:"user_id"`
	Camera        bool      `bson:"camera" json:"camera"`
	Notifications bool      `bson:"notifications" json:"notifications"`
	Location      bool      `bson:"location" json:"location"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// Store is the remote document store. It owns user profile data and keeps a
// copy of the local catalog.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to MongoDB and checks the connection
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	slog.Info("Connected to MongoDB", "database", dbName)
	return &Store{client: client, db: client.Database(dbName)}, nil
}

// NewStoreWithDatabase wraps an already connected database
func NewStoreWithDatabase(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Close disconnects the client opened by NewStore
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) findByUser(ctx context.Context, collection, userID string, out any) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"user_id": userID}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s for user %s: %w", collection, userID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("finding %s: %w", collection, err)
	}
	return nil
}

func (s *Store) replaceByUser(ctx context.Context, collection, userID string, doc any) error {
	_, err := s.db.Collection(collection).ReplaceOne(ctx,
		bson.M{"user_id": userID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("saving %s: %w", collection, err)
	}
	return nil
}

// GetProfile returns the user's profile
func (s *Store) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	if err := s.findByUser(ctx, profilesCollection, userID, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfile creates or replaces the user's profile
func (s *Store) SaveProfile(ctx context.Context, p *Profile) error {
	p.UpdatedAt = time.Now().UTC()
	return s.replaceByUser(ctx, profilesCollection, p.UserID, p)
}

// GetAddress returns the user's address
func (s *Store) GetAddress(ctx context.Context, userID string) (*Address, error) {
	var a Address
	if err := s.findByUser(ctx, addressesCollection, userID, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveAddress creates or replaces the user's address
func (s *Store) SaveAddress(ctx context.Context, a *Address) error {
	a.UpdatedAt = time.Now().UTC()
	return s.replaceByUser(ctx, addressesCollection, a.UserID, a)
}

// GetPermissions returns the user's permissions
func (s *Store) GetPermissions(ctx context.Context, userID string) (*Permissions, error) {
	var p Permissions
	if err := s.findByUser(ctx, permissionsCollection, userID, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePermissions creates or replaces the user's permissions
func (s *Store) SavePermissions(ctx context.Context, p *Permissions) error {
	p.UpdatedAt = time.Now().UTC()
	return s.replaceByUser(ctx, permissionsCollection, p.UserID, p)
}

// Mirror upserts a local record into the collection named after its kind.
// The record is stored in its JSON shape with the record ID as _id.
func (s *Store) Mirror(ctx context.Context, kind pantry.Kind, id string, doc any) error {
	m, err := toDocument(doc)
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", kind, id, err)
	}
	m["_id"] = id

	_, err = s.db.Collection(string(kind)).ReplaceOne(ctx,
		bson.M{"_id": id},
		m,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mirroring %s %s: %w", kind, id, err)
	}
	return nil
}

// Remove deletes a mirrored record
func (s *Store) Remove(ctx context.Context, kind pantry.Kind, id string) error {
	if _, err := s.db.Collection(string(kind)).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("removing %s %s: %w", kind, id, err)
	}
	return nil
}

// toDocument converts a JSON-tagged record to a BSON document, so the
// mirrored copy uses the same field names as the API
func toDocument(doc any) (bson.M, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.UnmarshalExtJSON(data, false, &m); err != nil {
		return nil, err
	}
	return m, nil
}
