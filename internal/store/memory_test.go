package store_test

import (
	"testing"

	"github.com/Pedroca011/finflow-dashboard/internal/store"
	"github.com/Pedroca011/finflow-dashboard/internal/store/storetest"
)

func TestMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return store.NewMemory()
	})
}
