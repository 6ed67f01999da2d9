package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyService fails its first run and then serves until stopped.
type flakyService struct {
	runs atomic.Int32
}

func (s *flakyService) Serve(ctx context.Context) error {
	if s.runs.Add(1) == 1 {
		return errors.New("listener failed")
	}
	<-ctx.Done()
	return nil
}

func TestTree_RestartsFailedServiceAndStops(t *testing.T) {
	tree := NewTree(TreeConfig{FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: time.Second})
	svc := &flakyService{}
	tree.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tree.Serve(ctx) }()

	require.Eventually(t, func() bool { return svc.runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}
}

func TestNewTree_Defaults(t *testing.T) {
	tree := NewTree(TreeConfig{})
	assert.NotNil(t, tree.root)
	assert.Equal(t, 15*time.Second, DefaultTreeConfig().FailureBackoff)
}
