package app

import (
	"sync"
	"testing"
)

func TestSessionLocksReleaseEntries(t *testing.T) {
	locks := newSessionLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		overlap bool
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("s1")
			defer unlock()

			mu.Lock()
			inside++
			if inside > 1 {
				overlap = true
			}
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if overlap {
		t.Fatalf("two holders of the same session lock overlapped")
	}
	if locks.size() != 0 {
		t.Fatalf("expected all lock entries released, got %d", locks.size())
	}

	unlockA := locks.lock("a")
	unlockB := locks.lock("b")
	if locks.size() != 2 {
		t.Fatalf("distinct sessions should hold distinct locks")
	}
	unlockA()
	unlockB()
	if locks.size() != 0 {
		t.Fatalf("expected empty lock table")
	}
}
