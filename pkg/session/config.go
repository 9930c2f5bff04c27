package session

import (
	"context"
	"fmt"
	"os"

	"github.com/levenlabs/go-lflag"
)

// Configured sets up the session Store based on flags. The session scope is
// always in memory; the flags pick the persistent backend.
func Configured() *Store {
	provider := lflag.String("session-store", "memory", "Persistent credential store (available: memory, bolt, firestore)")
	key := lflag.String("session-encryption-key", "", "32-byte key for sealing persisted credentials")
	boltPath := lflag.String("session-bolt-path", "solarmon-session.db", "Path of the bbolt credential database")
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")
	profile := lflag.String("session-profile", "default", "Name of the credential set in Firestore")

	s := NewMemory()

	lflag.Do(func() {
		var (
			b   Backend
			err error
		)
		switch *provider {
		case "memory":
			return
		case "bolt":
			b, err = OpenBolt(*boltPath, *key)
		case "firestore":
			// set this because that's how firestore client expects it
			if *emulator != "" {
				os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
			}
			b, err = OpenFirestore(context.Background(), *projectID, *database, *profile, *key)
		default:
			panic(fmt.Sprintf("unknown session store: %s", *provider))
		}
		if err != nil {
			panic(fmt.Sprintf("%s session store init failed: %v", *provider, err))
		}
		s.persistent = b
	})

	return s
}
