// Package testutil connects tests to the databases named in TEST_DB_URL and
// TEST_MONGO_URI. Tests that need one are skipped when it is not set.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/johndosdos/anonbox/internal/store/postgres"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func ProjectRoot() string {
	_, file, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(file), "../../")
	return root
}

func loadEnv(t *testing.T, key string) string {
	t.Helper()

	env, _ := godotenv.Read(filepath.Join(ProjectRoot(), ".env"))
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v := env[key]; v != "" {
		return v
	}

	t.Skipf("%s is not set", key)
	return ""
}

// DbInit returns a pool on a freshly reset and migrated test database. The
// schema is reset again when the test ends.
func DbInit(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testURL := loadEnv(t, "TEST_DB_URL")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, testURL)
	if err != nil {
		t.Fatalf("could not connect to the postgresql database: %v", err)
	}

	if err := postgres.Reset(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("postgres.Reset() error = %+v", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("postgres.Migrate() error = %+v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := postgres.Reset(ctx, pool); err != nil {
			t.Logf("postgres.Reset() error = %+v", err)
		}
		pool.Close()
	})

	return pool
}

// MongoInit returns a throwaway database that is dropped when the test ends.
func MongoInit(t *testing.T) *mongo.Database {
	t.Helper()

	uri := loadEnv(t, "TEST_MONGO_URI")

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("mongo.Connect() error = %+v", err)
	}

	db := client.Database("anonbox_test_" + uuid.NewString()[:8])

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := db.Drop(ctx); err != nil {
			t.Logf("db.Drop() error = %+v", err)
		}
		if err := client.Disconnect(ctx); err != nil {
			t.Logf("client.Disconnect() error = %+v", err)
		}
	})

	return db
}
