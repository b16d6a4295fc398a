package routingtable

import (
	"fmt"
	"testing"
)

// BenchmarkReverseTrie_Register measures registration performance
func BenchmarkReverseTrie_Register(b *testing.B) {
	trie := NewReverseTrie[int]()

	// Pre-create patterns to avoid allocation during benchmark
	patterns := make([]string, b.N)
	for i := 0; i < b.N; i++ {
		patterns[i] = fmt.Sprintf("orders/%d/created", i%1000)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		trie.Register(patterns[i], i)
	}
}

// BenchmarkReverseTrie_Match measures lookup performance
func BenchmarkReverseTrie_Match(b *testing.B) {
	trie := NewReverseTrie[int]()

	// Setup: many literal patterns plus wildcards at every level
	const numPatterns = 1000
	for i := 0; i < numPatterns; i++ {
		trie.Register(fmt.Sprintf("orders/%d/created", i), i)
	}
	trie.Register("orders/+/created", -1)
	trie.Register("+/+/created", -2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if got := trie.Match("orders/500/created"); len(got) != 3 {
			b.Fatalf("Expected 3 handlers, got %d", len(got))
		}
	}
}

// BenchmarkReverseTrie_MixedOperations measures mixed workload performance
func BenchmarkReverseTrie_MixedOperations(b *testing.B) {
	trie := NewReverseTrie[int]()

	const numTopics = 100
	topics := make([]string, numTopics)
	for i := 0; i < numTopics; i++ {
		topics[i] = fmt.Sprintf("topic/%d", i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		topic := topics[i%numTopics]

		// Mix of operations: 10% unregister, 70% match, 20% register
		switch i % 10 {
		case 0:
			trie.Unregister(topic)
		case 1, 2:
			trie.Register(topic, i)
		default:
			trie.Match(topic)
		}
	}
}

// BenchmarkReverseTrie_ConcurrentMatch measures concurrent lookup performance
func BenchmarkReverseTrie_ConcurrentMatch(b *testing.B) {
	trie := NewReverseTrie[int]()

	const numPatterns = 100
	for i := 0; i < numPatterns; i++ {
		trie.Register(fmt.Sprintf("sensors/%d", i), i)
	}
	trie.Register("sensors/+", -1)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			trie.Match("sensors/42")
		}
	})
}

// TestReverseTrie_PerformanceBaseline establishes performance baselines for future comparison
func TestReverseTrie_PerformanceBaseline(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping performance baseline test in short mode")
	}

	t.Run("ManyPatterns", func(t *testing.T) {
		const numPatterns = 10000
		trie := NewReverseTrie[int]()

		for i := 0; i < numPatterns; i++ {
			trie.Register(fmt.Sprintf("tenant/%d/device/%d", i%100, i), i)
		}

		if trie.Len() != numPatterns {
			t.Fatalf("Expected %d handlers, got %d", numPatterns, trie.Len())
		}

		for i := 0; i < 100; i++ {
			topic := fmt.Sprintf("tenant/%d/device/%d", i%100, i)
			if got := trie.Match(topic); len(got) != 1 || got[0] != i {
				t.Fatalf("Topic %s: expected [%d], got %v", topic, i, got)
			}
		}

		t.Logf("Successfully handled %d patterns", numPatterns)
	})
}
