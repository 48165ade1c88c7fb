package codeset

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewRedisStore(client, "bc")
}

func sampleSet(ownerID string) *CodeSet {
	return &CodeSet{
		OwnerID: ownerID,
		Records: []CodeRecord{
			{ID: "c1", Hash: []byte("hash-1")},
			{ID: "c2", Hash: []byte("hash-2")},
			{ID: "c3", Hash: []byte("hash-3"), Ciphertext: []byte("ct-3")},
		},
		GeneratedAt: 1700000000,
	}
}

func TestRedisStoreSaveGetRoundtrip(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveSet(ctx, "u1", sampleSet("u1")); err != nil {
		t.Fatalf("SaveSet failed: %v", err)
	}

	got, err := store.GetSet(ctx, "u1")
	if err != nil {
		t.Fatalf("GetSet failed: %v", err)
	}
	if got.OwnerID != "u1" || len(got.Records) != 3 {
		t.Fatalf("unexpected set: %+v", got)
	}
	if !bytes.Equal(got.Records[2].Ciphertext, []byte("ct-3")) {
		t.Fatal("expected ciphertext to survive the roundtrip")
	}
	if got.Remaining() != 3 {
		t.Fatalf("expected 3 remaining, got %d", got.Remaining())
	}
}

func TestRedisStoreGetMissingReturnsNotFound(t *testing.T) {
	_, store := newTestStore(t)

	if _, err := store.GetSet(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStoreSaveReplacesWholeSet(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveSet(ctx, "u1", sampleSet("u1")); err != nil {
		t.Fatalf("SaveSet failed: %v", err)
	}
	replacement := &CodeSet{
		OwnerID:     "u1",
		Records:     []CodeRecord{{ID: "n1", Hash: []byte("hash-n1")}},
		GeneratedAt: 1700000100,
	}
	if err := store.SaveSet(ctx, "u1", replacement); err != nil {
		t.Fatalf("SaveSet replacement failed: %v", err)
	}

	got, err := store.GetSet(ctx, "u1")
	if err != nil {
		t.Fatalf("GetSet failed: %v", err)
	}
	if len(got.Records) != 1 || got.Records[0].ID != "n1" {
		t.Fatalf("expected replacement set only, got %+v", got)
	}
}

func TestRedisStoreConsumeMatchingMarksOneRecord(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveSet(ctx, "u1", sampleSet("u1")); err != nil {
		t.Fatalf("SaveSet failed: %v", err)
	}

	outcome, err := store.ConsumeMatching(ctx, "u1", 1700000500, func(record CodeRecord) bool {
		return record.ID == "c2"
	})
	if err != nil {
		t.Fatalf("ConsumeMatching failed: %v", err)
	}
	if !outcome.Matched || outcome.CodeID != "c2" {
		t.Fatalf("expected c2 to match, got %+v", outcome)
	}
	if outcome.Remaining != 2 {
		t.Fatalf("expected 2 remaining, got %d", outcome.Remaining)
	}

	got, err := store.GetSet(ctx, "u1")
	if err != nil {
		t.Fatalf("GetSet failed: %v", err)
	}
	for _, record := range got.Records {
		if record.ID == "c2" {
			if !record.Used || record.UsedAt != 1700000500 {
				t.Fatalf("expected c2 marked used at 1700000500, got %+v", record)
			}
		} else if record.Used {
			t.Fatalf("expected only c2 consumed, got %+v", record)
		}
	}
}

func TestRedisStoreConsumeMatchingSkipsUsedRecords(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	set := sampleSet("u1")
	set.Records[1].Used = true
	if err := store.SaveSet(ctx, "u1", set); err != nil {
		t.Fatalf("SaveSet failed: %v", err)
	}

	outcome, err := store.ConsumeMatching(ctx, "u1", 1700000500, func(record CodeRecord) bool {
		return record.ID == "c2"
	})
	if err != nil {
		t.Fatalf("ConsumeMatching failed: %v", err)
	}
	if outcome.Matched {
		t.Fatal("expected used record to never match again")
	}
	if outcome.Remaining != 2 {
		t.Fatalf("expected 2 remaining, got %d", outcome.Remaining)
	}
}

func TestRedisStoreConsumeMatchingMissingKeyReturnsNotFound(t *testing.T) {
	_, store := newTestStore(t)

	_, err := store.ConsumeMatching(context.Background(), "nobody", 0, func(CodeRecord) bool { return true })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStoreClearSetIsIdempotent(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveSet(ctx, "u1", sampleSet("u1")); err != nil {
		t.Fatalf("SaveSet failed: %v", err)
	}
	if err := store.ClearSet(ctx, "u1"); err != nil {
		t.Fatalf("ClearSet failed: %v", err)
	}
	if _, err := store.GetSet(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
	if err := store.ClearSet(ctx, "u1"); err != nil {
		t.Fatalf("second ClearSet failed: %v", err)
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	if _, err := decodeCodeSet([]byte{99, '{', '}'}); err == nil {
		t.Fatal("expected error for unknown record version")
	}
	if _, err := decodeCodeSet(nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
