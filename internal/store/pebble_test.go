package store_test

import (
	"testing"

	"github.com/Pedroca011/finflow-dashboard/internal/store"
	"github.com/Pedroca011/finflow-dashboard/internal/store/storetest"
)

func TestPebble(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := store.OpenPebble(t.TempDir())
		if err != nil {
			t.Fatalf("open pebble: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestPebble_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	storetest.Reopen(t,
		func() (store.Store, error) { return store.OpenPebble(dir) },
	)
}
