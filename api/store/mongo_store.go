/* mongo_store.go
 * Contains MongoStore. Each collection is kept as a single document in the `ladder` collection, keyed by `_id`
 * ("teams", "matches", "state"), so replacing a whole collection is one atomic document write
 * Authors: Zachary Bower
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"ladder-bot/api/shared"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	LadderCollection = "ladder"

	teamsDocID   = "teams"
	matchesDocID = "matches"
	stateDocID   = "state"
)

type MongoStore struct {
	Client     *mongo.Client
	Database   *mongo.Database
	Collection *mongo.Collection
}

type teamsDocument struct {
	ID    string        `bson:"_id"`
	Teams []shared.Team `bson:"teams"`
}

type matchesDocument struct {
	ID      string             `bson:"_id"`
	Matches []shared.Challenge `bson:"matches"`
}

type stateDocument struct {
	ID    string             `bson:"_id"`
	State shared.LadderState `bson:"state"`
}

// NewMongoStore connects to MongoDB and returns a store using the given database
// Preconditions: Receives a context, the mongo connection uri and the database name
// Postconditions: Returns pointer to the MongoStore, or error if it occurs
func NewMongoStore(ctx context.Context, mongoURI string, dbName string) (*MongoStore, error) {
	if mongoURI == "" || dbName == "" {
		return nil, fmt.Errorf("mongo uri and database name cannot be empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	db := client.Database(dbName)

	return &MongoStore{
		Client:     client,
		Database:   db,
		Collection: db.Collection(LadderCollection),
	}, nil
}

// LoadTeams returns the stored teams, or an empty slice if none have been saved
func (s *MongoStore) LoadTeams(ctx context.Context) ([]shared.Team, error) {
	var doc teamsDocument
	found, err := s.find(ctx, teamsDocID, &doc)
	if err != nil || !found {
		return nil, err
	}
	return doc.Teams, nil
}

// SaveTeams replaces the stored teams
func (s *MongoStore) SaveTeams(ctx context.Context, teams []shared.Team) error {
	if teams == nil {
		teams = []shared.Team{}
	}
	return s.replace(ctx, teamsDocID, teamsDocument{ID: teamsDocID, Teams: teams})
}

// LoadMatches returns the stored challenges, or an empty slice if none have been saved
func (s *MongoStore) LoadMatches(ctx context.Context) ([]shared.Challenge, error) {
	var doc matchesDocument
	found, err := s.find(ctx, matchesDocID, &doc)
	if err != nil || !found {
		return nil, err
	}
	return doc.Matches, nil
}

// SaveMatches replaces the stored challenges
func (s *MongoStore) SaveMatches(ctx context.Context, matches []shared.Challenge) error {
	if matches == nil {
		matches = []shared.Challenge{}
	}
	return s.replace(ctx, matchesDocID, matchesDocument{ID: matchesDocID, Matches: matches})
}

// LoadState returns the stored lifecycle state, or the zero state if none has been saved
func (s *MongoStore) LoadState(ctx context.Context) (shared.LadderState, error) {
	var doc stateDocument
	found, err := s.find(ctx, stateDocID, &doc)
	if err != nil || !found {
		return shared.LadderState{}, err
	}
	return doc.State, nil
}

// SaveState replaces the stored lifecycle state
func (s *MongoStore) SaveState(ctx context.Context, state shared.LadderState) error {
	return s.replace(ctx, stateDocID, stateDocument{ID: stateDocID, State: state})
}

// Close disconnects the client
func (s *MongoStore) Close(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.Disconnect(ctx)
}

// find decodes the document with the given id into v and reports whether it existed
func (s *MongoStore) find(ctx context.Context, id string, v any) (bool, error) {
	err := s.Collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to fetch %s from database: %w", id, err)
	}
	return true, nil
}

func (s *MongoStore) replace(ctx context.Context, id string, doc any) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.Collection.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc, opts)
	if err != nil {
		return fmt.Errorf("%s replace failed: %w", id, err)
	}
	slog.Debug("Replaced ladder document", "id", id)
	return nil
}
