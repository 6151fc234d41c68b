package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldBlock(t *testing.T) {
	set := map[string]bool{"images": true, "fonts": true}

	assert.True(t, shouldBlock(set, "Image"))
	assert.True(t, shouldBlock(set, "Font"))
	assert.False(t, shouldBlock(set, "Stylesheet"))
	assert.False(t, shouldBlock(set, "Document"))
}

func TestPause_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	Pause(ctx, time.Hour, 0)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPause_ZeroIsNoop(t *testing.T) {
	start := time.Now()
	Pause(context.Background(), 0, 0)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestConfigDefaults(t *testing.T) {
	m := NewManager(Config{})
	assert.Equal(t, 30*time.Second, m.cfg.NavigateTimeout)
	assert.NotNil(t, m.cfg.Logger)
}

func TestManager_PageAfterClose(t *testing.T) {
	m := NewManager(Config{})
	assert.NoError(t, m.Close())
	_, err := m.Page(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
