package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

func TestConfigStore_InterfaceCompliance(t *testing.T) {
	var _ driven.ConfigStore = NewConfigStore()
}

func TestConfigStore_Seeded(t *testing.T) {
	s := NewConfigStore(map[string]any{"llm.provider": "cohere"}, map[string]any{"retrieval.top_k": int64(6)})

	assert.Equal(t, "cohere", s.GetString("llm.provider"))
	assert.Equal(t, 6, s.GetInt("retrieval.top_k"))
	assert.Equal(t, []string{"llm.provider", "retrieval.top_k"}, s.Keys())
}

func TestConfigStore_TypedGetters(t *testing.T) {
	s := NewConfigStore()
	require.NoError(t, s.Set("lock.wait", "90s"))
	require.NoError(t, s.Set("transport.requests_per_second", 3))
	require.NoError(t, s.Set("flag", true))

	assert.Equal(t, 90*time.Second, s.GetDuration("lock.wait"))
	assert.Equal(t, 3.0, s.GetFloat("transport.requests_per_second"))
	assert.True(t, s.GetBool("flag"))
	assert.Equal(t, "", s.GetString("flag"))

	_, ok := s.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_NoOps(t *testing.T) {
	s := NewConfigStore()
	assert.NoError(t, s.Save())
	assert.NoError(t, s.Load())
	assert.Equal(t, ":memory:", s.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	s := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Set("k", i)
			s.GetInt("k")
			s.Keys()
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Keys(), 1)
}
