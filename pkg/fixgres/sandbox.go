package fixgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"fmt"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/gkanna939017-lab/local-talent/pkg/prng"
)

// Sandbox is a schema private to one test. DSN carries the schema's
// search_path so any pool opened from it stays inside the sandbox.
type Sandbox struct {
	DB     *sql.DB
	DSN    string
	Schema string
	Seed   int64
}

// NewSandbox creates a schema, runs the configured migrations inside it and
// drops it when the test finishes.
func NewSandbox(t *testing.T) *Sandbox {
	t.Helper()
	base, err := ConnString()
	if err != nil {
		t.Fatalf("%v. Call fixgres.Boot in TestMain first.", err)
	}

	admin, err := sql.Open("pgx", base)
	if err != nil {
		t.Fatalf("open admin: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := fmt.Sprintf("t_%x", time.Now().UnixNano())
	if _, err := admin.ExecContext(ctx, `CREATE SCHEMA "`+schema+`"`); err != nil {
		_ = admin.Close()
		t.Fatalf("create schema: %v", err)
	}

	dsn := withSearchPath(base, schema)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = admin.Close()
		t.Fatalf("open sandbox: %v", err)
	}

	sbx := &Sandbox{DB: db, DSN: dsn, Schema: schema, Seed: randomSeed()}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Close()
		_, _ = admin.ExecContext(ctx, `DROP SCHEMA IF EXISTS "`+schema+`" CASCADE`)
		_ = admin.Close()
	})

	mu.Lock()
	migrate := active.migrate
	mu.Unlock()
	if migrate != nil {
		if err := migrate(ctx, db); err != nil {
			t.Fatalf("migrate sandbox %s: %v", schema, err)
		}
	}
	t.Logf("sandbox schema=%s seed=%d", schema, sbx.Seed)
	return sbx
}

// Rand is a reader seeded with the sandbox seed, for reproducible fixtures.
func (s *Sandbox) Rand() io.Reader { return prng.New(s.Seed) }

func withSearchPath(base, schema string) string {
	u, _ := url.Parse(base)
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}

func randomSeed() int64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}
