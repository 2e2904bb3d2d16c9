package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"
)

var shortIDPattern = regexp.MustCompile(`^pt-[0-9a-z]{6}$`)

func TestGenerateID(t *testing.T) {
	id, err := GenerateID("pt", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !shortIDPattern.MatchString(id) {
		t.Fatalf("unexpected id %q", id)
	}

	if _, err := GenerateID("", nil); err == nil {
		t.Fatal("expected error for empty prefix")
	}
}

func TestGenerateIDRetriesCollisions(t *testing.T) {
	var seen []string
	id, err := GenerateID("pt", func(candidate string) (bool, error) {
		seen = append(seen, candidate)
		return len(seen) < 3, nil
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(seen) != 3 || seen[2] != id {
		t.Fatalf("expected the third candidate to win, saw %v and got %q", seen, id)
	}

	_, err = GenerateID("pt", func(string) (bool, error) { return true, nil })
	if !errors.Is(err, errIDSpaceExhausted) {
		t.Fatalf("expected exhaustion error, got %v", err)
	}

	boom := errors.New("boom")
	if _, err := GenerateID("pt", func(string) (bool, error) { return false, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected lookup error to propagate, got %v", err)
	}
}

func TestIDKindsMintUnusedIDs(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	for _, kind := range []idKind{prototypeIDs, commentIDs, blobIDs} {
		err := st.inTx(ctx, func(tx *sql.Tx) error {
			id, err := kind.mint(ctx, tx)
			if err != nil {
				return err
			}
			if len(id) != len(kind.prefix)+1+idSuffixLength || id[:len(kind.prefix)+1] != kind.prefix+"-" {
				t.Fatalf("unexpected %s id %q", kind.table, id)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("mint %s id: %v", kind.table, err)
		}
	}

	id, err := randomHexID("se")
	if err != nil || len(id) != len("se-")+20 {
		t.Fatalf("unexpected session id %q (%v)", id, err)
	}
}

func TestLoadMigrationsValidatesNames(t *testing.T) {
	good := fstest.MapFS{
		"migrations/0002_second_step.sql": {Data: []byte("SELECT 2;")},
		"migrations/0001_first.sql":       {Data: []byte("SELECT 1;")},
	}
	loaded, err := loadMigrations(good)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Version != 1 || loaded[1].Description != "second step" {
		t.Fatalf("unexpected migrations: %#v", loaded)
	}

	for name, fsys := range map[string]fstest.MapFS{
		"missing version": {"migrations/first.sql": {Data: []byte("")}},
		"duplicate": {
			"migrations/0001_a.sql": {Data: []byte("")},
			"migrations/001_b.sql":  {Data: []byte("")},
		},
	} {
		if _, err := loadMigrations(fsys); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
