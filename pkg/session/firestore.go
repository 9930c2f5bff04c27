package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/solarmon/solarmon/pkg/log"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreBackend persists sealed credentials in Firestore under
// sessions/{profile}/credentials/{key}.
type FirestoreBackend struct {
	client  *firestore.Client
	profile string
	sealer  *sealer
}

// OpenFirestore connects to Firestore. An empty projectID is detected from the
// environment and an empty database selects the default one.
func OpenFirestore(ctx context.Context, projectID, database, profile, key string) (*FirestoreBackend, error) {
	s, err := newSealer(key)
	if err != nil {
		return nil, err
	}
	if profile == "" {
		return nil, fmt.Errorf("session profile cannot be empty")
	}
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	return &FirestoreBackend{client: client, profile: profile, sealer: s}, nil
}

func (f *FirestoreBackend) credentials() *firestore.CollectionRef {
	return f.client.Collection("sessions").Doc(f.profile).Collection("credentials")
}

func (f *FirestoreBackend) doc(key string) *firestore.DocumentRef {
	return f.credentials().Doc(key)
}

func (f *FirestoreBackend) Get(ctx context.Context, key string) (string, error) {
	doc, err := f.doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to fetch credential doc: %w", err)
	}
	val, err := doc.DataAt("sealed")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "credential doc missing sealed field", slog.String("key", key))
		return "", fmt.Errorf("credential document missing 'sealed' field: %w", err)
	}
	sealed, ok := val.([]byte)
	if !ok {
		return "", fmt.Errorf("credential 'sealed' field is not bytes: %T", val)
	}
	return f.sealer.open(ctx, sealed)
}

func (f *FirestoreBackend) Set(ctx context.Context, key, value string) error {
	sealed, err := f.sealer.seal(ctx, value)
	if err != nil {
		return err
	}
	_, err = f.doc(key).Set(ctx, map[string]interface{}{
		"sealed":  sealed,
		"updated": time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

func (f *FirestoreBackend) Delete(ctx context.Context, key string) error {
	if _, err := f.doc(key).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// Purge deletes every credential document of the profile, including keys
// that are no longer written.
func (f *FirestoreBackend) Purge(ctx context.Context) error {
	iter := f.credentials().Documents(ctx)
	defer iter.Stop()
	var n int
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("error iterating credentials: %w", err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
			return fmt.Errorf("failed to delete credential %s: %w", doc.Ref.ID, err)
		}
		n++
	}
	log.Ctx(ctx).DebugContext(ctx, "purged credentials", slog.String("profile", f.profile), slog.Int("count", n))
	return nil
}

func (f *FirestoreBackend) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
