package directory

import (
	"fmt"
	"testing"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

func node(id domain.NodeID, gen int) domain.Node {
	return domain.Node{
		ID:        id,
		Name:      fmt.Sprintf("node-%x-%d", id, gen),
		ShortName: fmt.Sprintf("n%d", gen),
		Latitude:  float64(gen),
		Longitude: float64(-gen),
		LastSeen:  time.Unix(int64(gen), 0),
		RSSI:      -100 + gen,
		SNR:       float64(gen) / 2,
	}
}

func TestDirectoryCapacity(t *testing.T) {
	d := New(DefaultCapacity)

	for i := 1; i <= DefaultCapacity; i++ {
		if !d.Upsert(node(domain.NodeID(i), 1)) {
			t.Fatalf("insert %d should succeed", i)
		}
	}
	for i := 1; i <= DefaultCapacity; i++ {
		d.Upsert(node(domain.NodeID(i), 2))
	}
	if d.Upsert(node(999, 1)) {
		t.Fatalf("insert past capacity should be rejected")
	}

	if d.Len() != DefaultCapacity {
		t.Fatalf("expected %d nodes, got %d", DefaultCapacity, d.Len())
	}
	if _, ok := d.Get(999); ok {
		t.Fatalf("node inserted after capacity should be absent")
	}
	for i := 1; i <= DefaultCapacity; i++ {
		got, ok := d.Get(domain.NodeID(i))
		if !ok {
			t.Fatalf("node %d missing", i)
		}
		if got != node(domain.NodeID(i), 2) {
			t.Fatalf("node %d should hold latest fields, got %+v", i, got)
		}
	}
}

func TestDirectoryUpsertReplacesAllFields(t *testing.T) {
	d := New(4)
	d.Upsert(node(7, 1))
	d.Upsert(node(8, 1))

	latest := domain.Node{ID: 7, Name: "renamed"}
	if !d.Upsert(latest) {
		t.Fatalf("update of resident node should succeed")
	}
	if d.Len() != 2 {
		t.Fatalf("update changed size: %d", d.Len())
	}
	got, _ := d.Get(7)
	if got != latest {
		t.Fatalf("expected full overwrite, got %+v", got)
	}
}

func TestDirectoryUpdateWhenFull(t *testing.T) {
	d := New(2)
	d.Upsert(node(1, 1))
	d.Upsert(node(2, 1))

	if !d.Upsert(node(2, 5)) {
		t.Fatalf("existing id should keep updating when full")
	}
	got, _ := d.Get(2)
	if got.Name != node(2, 5).Name {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestDirectorySnapshotIsCopy(t *testing.T) {
	d := New(0)
	if d.Cap() != DefaultCapacity {
		t.Fatalf("expected default capacity, got %d", d.Cap())
	}
	d.Upsert(node(1, 1))
	snap := d.Snapshot()
	snap[0].Name = "mutated"
	if got, _ := d.Get(1); got.Name == "mutated" {
		t.Fatalf("snapshot must not alias directory storage")
	}
}
