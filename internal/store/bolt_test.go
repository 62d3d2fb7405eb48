package store_test

import (
	"path/filepath"
	"testing"

	"github.com/Pedroca011/finflow-dashboard/internal/store"
	"github.com/Pedroca011/finflow-dashboard/internal/store/storetest"
)

func TestBolt(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := store.OpenBolt(filepath.Join(t.TempDir(), "paper.bolt"))
		if err != nil {
			t.Fatalf("open bolt: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestBolt_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.bolt")
	storetest.Reopen(t,
		func() (store.Store, error) { return store.OpenBolt(path) },
	)
}
