package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"OptionsSentinel/internal/model"
)

// FirestoreStore keeps one document per date in the options_data collection.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	log        *zap.SugaredLogger
}

// NewFirestoreStore builds a client from a base64-encoded service-account key.
// The project is taken from the key itself.
func NewFirestoreStore(ctx context.Context, encodedKey string, log *zap.SugaredLogger) (*FirestoreStore, error) {
	creds, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode service account key: %w", err)
	}
	client, err := firestore.NewClient(ctx, firestore.DetectProjectID, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	log.Infow("firestore store opened", "collection", Collection)
	return &FirestoreStore{client: client, collection: Collection, log: log}, nil
}

func (f *FirestoreStore) Get(ctx context.Context, date string) (*model.DailyRecord, error) {
	snap, err := f.client.Collection(f.collection).Doc(date).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document %s: %w", date, err)
	}
	return decodeSnapshot(snap)
}

func (f *FirestoreStore) Latest(ctx context.Context) (*model.DailyRecord, error) {
	iter := f.client.Collection(f.collection).
		OrderBy("date", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	return decodeSnapshot(snap)
}

func (f *FirestoreStore) Set(ctx context.Context, rec *model.DailyRecord) error {
	if _, err := f.client.Collection(f.collection).Doc(rec.Date).Set(ctx, normalize(rec)); err != nil {
		return fmt.Errorf("set document %s: %w", rec.Date, err)
	}
	f.log.Infow("daily record written", "date", rec.Date, "options", len(rec.Options))
	return nil
}

func (f *FirestoreStore) Close() error {
	return f.client.Close()
}

func decodeSnapshot(snap *firestore.DocumentSnapshot) (*model.DailyRecord, error) {
	var rec model.DailyRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", snap.Ref.ID, err)
	}
	if rec.Date == "" {
		rec.Date = snap.Ref.ID
	}
	return normalize(&rec), nil
}
