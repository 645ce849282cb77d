package storage

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lookkg/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// failingStorage wraps MemoryStorage and fails deletes for chosen keys
type failingStorage struct {
	*MemoryStorage
	fail map[string]bool

	mu      sync.Mutex
	deleted []string
	block   chan struct{}
}

func (s *failingStorage) Delete(ctx context.Context, key string) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.deleted = append(s.deleted, key)
	s.mu.Unlock()
	if s.fail[key] {
		return errors.New("s3 unavailable")
	}
	return s.MemoryStorage.Delete(ctx, key)
}

func put(t *testing.T, store *MemoryStorage, key string) string {
	t.Helper()
	result, err := store.Upload(context.Background(), &UploadInput{Key: key, Data: bytes.NewReader([]byte("x"))})
	require.NoError(t, err)
	return result.URL
}

func TestCleaner_DeletesScheduledImages(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewMemoryStorage("https://lookkg-images.s3.us-west-2.amazonaws.com")
	first := put(t, store, "1-a.png")
	second := put(t, store, "2-b.png")

	cleaner := NewCleaner(store, config.CleanupConfig{Workers: 2, QueueSize: 8, Timeout: time.Second}, zap.NewNop())
	cleaner.Schedule(first)
	cleaner.Schedule(second)
	cleaner.Close()

	assert.Zero(t, store.Len())
}

func TestCleaner_LogsFailuresWithoutPropagating(t *testing.T) {
	defer goleak.VerifyNone(t)

	core, logs := observer.New(zapcore.WarnLevel)
	mem := NewMemoryStorage("https://lookkg-images.s3.us-west-2.amazonaws.com")
	store := &failingStorage{MemoryStorage: mem, fail: map[string]bool{"1-a.png": true}}
	url := put(t, mem, "1-a.png")

	cleaner := NewCleaner(store, config.CleanupConfig{Workers: 1, QueueSize: 1, Timeout: time.Second}, zap.New(core))
	cleaner.Schedule(url)
	cleaner.Schedule("::not a url")
	cleaner.Close()

	assert.Equal(t, 1, logs.FilterMessage("Failed to delete remote image").Len())
	assert.Equal(t, 1, logs.FilterMessage("Cannot derive object key from image url").Len())
	assert.Equal(t, 1, mem.Len())
}

func TestCleaner_ScheduleNeverBlocks(t *testing.T) {
	defer goleak.VerifyNone(t)

	core, logs := observer.New(zapcore.WarnLevel)
	mem := NewMemoryStorage("https://lookkg-images.s3.us-west-2.amazonaws.com")
	store := &failingStorage{MemoryStorage: mem, block: make(chan struct{})}

	cleaner := NewCleaner(store, config.CleanupConfig{Workers: 1, QueueSize: 1, Timeout: time.Second}, zap.New(core))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			cleaner.Schedule(put(t, mem, time.Now().Format("150405.000000000")+".png"))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Schedule blocked on a full queue")
	}

	close(store.block)
	cleaner.Close()

	assert.Positive(t, logs.FilterMessage("Image cleanup queue full, dropping job").Len())
}

func TestCleaner_ScheduleAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewMemoryStorage("https://lookkg-images.s3.us-west-2.amazonaws.com")
	url := put(t, store, "1-a.png")

	cleaner := NewCleaner(store, config.CleanupConfig{Workers: 1, QueueSize: 1, Timeout: time.Second}, zap.NewNop())
	cleaner.Close()
	cleaner.Schedule(url)
	cleaner.Close()

	assert.Equal(t, 1, store.Len())
}
