package store

import (
	"sync"
	"testing"
)

func TestUserLocks_SerializesSameUser(t *testing.T) {
	l := newUserLocks()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock("alice")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	if n := len(l.locks); n != 0 {
		t.Errorf("locks left = %d, want 0", n)
	}
}

func TestUserLocks_DifferentUsersIndependent(t *testing.T) {
	l := newUserLocks()
	unlockA := l.lock("alice")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		l.lock("bob")()
		close(done)
	}()
	<-done

	if _, ok := l.locks["alice"]; !ok {
		t.Error("alice lock dropped while held")
	}
}
