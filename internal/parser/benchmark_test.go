package parser

import (
	"testing"
)

// BenchmarkStripTimestamp benchmarks stripping a standard timestamp prefix.
func BenchmarkStripTimestamp(b *testing.B) {
	line := "[Wed Mar 06 19:40:12 2019] A gnoll has been slain by Grimjaw."

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = StripTimestamp(line)
	}
}

// BenchmarkClassify_Ordinary benchmarks the common case of a non-control line.
func BenchmarkClassify_Ordinary(b *testing.B) {
	text := "A gnoll has been slain by Grimjaw."

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Classify(text)
	}
}

// BenchmarkClassify_Camp benchmarks the camp countdown notice.
func BenchmarkClassify_Camp(b *testing.B) {
	text := "It will take about 5 more seconds to prepare your camp."

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Classify(text)
	}
}
