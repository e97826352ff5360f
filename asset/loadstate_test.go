package asset

import (
	"testing"
	"time"
)

func waitNotBusy(t *testing.T, ls *LoadState) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for ls.Busy() {
		if time.Now().After(deadline) {
			t.Fatalf("load worker never finished")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestLoadStateRejectsConcurrentLoads(t *testing.T) {
	ls := &LoadState{}
	if !ls.StartLoad("no-such-file.gltf") {
		t.Fatalf("first StartLoad must be accepted")
	}
	// Whether or not the worker already finished, a second request while
	// busy must be refused; once idle it must be accepted again.
	if ls.Busy() {
		if ls.StartLoad("other.gltf") {
			t.Fatalf("StartLoad while busy must be rejected")
		}
	}
	waitNotBusy(t, ls)

	_, err, ok := ls.TakeResult()
	if !ok {
		t.Fatalf("expected a result after the worker finished")
	}
	if err == nil {
		t.Fatalf("expected an error loading a missing file")
	}
}

func TestLoadStateResultConsumedOnce(t *testing.T) {
	ls := &LoadState{}
	ls.StartLoad("no-such-file.gltf")
	waitNotBusy(t, ls)

	if _, _, ok := ls.TakeResult(); !ok {
		t.Fatalf("first TakeResult must return the result")
	}
	if _, _, ok := ls.TakeResult(); ok {
		t.Fatalf("second TakeResult must report nothing pending")
	}

	if !ls.StartLoad("again.gltf") {
		t.Fatalf("StartLoad must be accepted again once idle")
	}
	waitNotBusy(t, ls)
}

func TestLoadStateNothingPendingInitially(t *testing.T) {
	ls := &LoadState{}
	if ls.Busy() {
		t.Fatalf("fresh LoadState must not be busy")
	}
	if _, _, ok := ls.TakeResult(); ok {
		t.Fatalf("fresh LoadState must have no pending result")
	}
}
