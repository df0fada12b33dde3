package ruleset_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/tollbooth/internal/ruleset"
)

type recordingInvalidator struct {
	mu      sync.Mutex
	cleared []string
}

func (r *recordingInvalidator) ClearCache(serviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, serviceID)
}

func (r *recordingInvalidator) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.cleared...)
}

func TestWatcher_InvalidatesOnChange(t *testing.T) {
	dir := t.TempDir()
	inv := &recordingInvalidator{}

	changed := make(chan string, 8)
	w, err := ruleset.NewWatcher(dir, inv, func(serviceID string) { changed <- serviceID })
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	w.SetDebounce(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)

	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "storage.yaml", storageYAML)

	select {
	case id := <-changed:
		require.Equal(t, "storage", id)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}

	require.Eventually(t, func() bool {
		cleared := inv.snapshot()
		return len(cleared) > 0 && cleared[0] == "storage"
	}, time.Second, 10*time.Millisecond)

	for _, id := range inv.snapshot() {
		require.Equal(t, "storage", id)
	}
}

func TestNewWatcher_Validation(t *testing.T) {
	_, err := ruleset.NewWatcher("", &recordingInvalidator{}, nil)
	require.Error(t, err)

	_, err = ruleset.NewWatcher(t.TempDir(), nil, nil)
	require.Error(t, err)

	_, err = ruleset.NewWatcher("/definitely/not/here", &recordingInvalidator{}, nil)
	require.Error(t, err)
}
