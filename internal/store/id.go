package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idSuffixLength = 6
	idMaxAttempts  = 20
)

var errIDSpaceExhausted = errors.New("unable to generate unique id")

// idKind pairs an id prefix with the table whose primary key it fills.
type idKind struct {
	prefix string
	table  string
}

var (
	prototypeIDs = idKind{prefix: "pt", table: "prototypes"}
	commentIDs   = idKind{prefix: "cm", table: "comments"}
	blobIDs      = idKind{prefix: "bl", table: "blobs"}
)

// mint returns an id unused in the kind's table as seen by tx.
func (k idKind) mint(ctx context.Context, tx *sql.Tx) (string, error) {
	return GenerateID(k.prefix, func(id string) (bool, error) {
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM "+k.table+" WHERE id = ?", id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return err == nil, err
	})
}

// GenerateID returns <prefix>-<6 base36 chars>, retrying while taken reports
// a collision. A nil taken accepts the first candidate.
func GenerateID(prefix string, taken func(string) (bool, error)) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("id prefix is required")
	}
	for range idMaxAttempts {
		suffix, err := randomBase36(idSuffixLength)
		if err != nil {
			return "", err
		}
		id := prefix + "-" + suffix
		if taken == nil {
			return id, nil
		}
		collides, err := taken(id)
		if err != nil {
			return "", err
		}
		if !collides {
			return id, nil
		}
	}
	return "", errIDSpaceExhausted
}

func randomBase36(length int) (string, error) {
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(length)
	for _, v := range raw {
		b.WriteByte(base36Alphabet[int(v)%len(base36Alphabet)])
	}
	return b.String(), nil
}

// randomHexID returns <prefix>-<20 hex chars> for users and sessions, whose
// ids are not user-facing and need no collision check.
func randomHexID(prefix string) (string, error) {
	raw := make([]byte, 10)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return prefix + "-" + hex.EncodeToString(raw), nil
}
