package saves

import (
	"reflect"
	"testing"
)

func TestChunk(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}

	got := Chunk(ids, 2)
	want := [][]string{{"a", "b"}, {"c", "d"}, {"e"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Chunk = %v, want %v", got, want)
	}
}

func TestChunkEdgeCases(t *testing.T) {
	if Chunk(nil, 10) != nil {
		t.Fatal("nil input should stay nil")
	}
	if Chunk([]string{"a"}, 0) != nil {
		t.Fatal("non-positive size should yield nil")
	}
	got := Chunk([]string{"a", "b"}, 10)
	if len(got) != 1 || len(got[0]) != 2 {
		t.Fatalf("single batch expected, got %v", got)
	}
}

func TestChunkRespectsBatchCeiling(t *testing.T) {
	ids := make([]string, 25)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}
	batches := Chunk(ids, savedBatchSize)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	for i, b := range batches {
		if len(b) > savedBatchSize {
			t.Errorf("batch %d exceeds ceiling: %d", i, len(b))
		}
	}
}
