package persistent

import (
	"bytes"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/commands"
	"github.com/stretchr/testify/require"
)

func benchmarkStdMapInsert(factor int, b *testing.B) {
	m := map[int]int{}
	for n := 0; n < factor*b.N; n++ {
		m[n] = n
	}
}

func BenchmarkStdMapInsert1(b *testing.B)    { benchmarkStdMapInsert(1, b) }
func BenchmarkStdMapInsert10(b *testing.B)   { benchmarkStdMapInsert(10, b) }
func BenchmarkStdMapInsert100(b *testing.B)  { benchmarkStdMapInsert(100, b) }
func BenchmarkStdMapInsert1k(b *testing.B)   { benchmarkStdMapInsert(1_000, b) }
func BenchmarkStdMapInsert10k(b *testing.B)  { benchmarkStdMapInsert(10_000, b) }
func BenchmarkStdMapInsert100k(b *testing.B) { benchmarkStdMapInsert(100_000, b) }

func benchmarkStdMapGet(factor int, b *testing.B) {
	m := map[int]int{}
	b.StopTimer()
	for n := 0; n < factor*b.N; n++ {
		m[n] = n
	}
	b.StartTimer()
	for n := 0; n < factor*b.N; n++ {
		_ = m[n]
	}
}

func BenchmarkStdMapGet1(b *testing.B)    { benchmarkStdMapGet(1, b) }
func BenchmarkStdMapGet10(b *testing.B)   { benchmarkStdMapGet(10, b) }
func BenchmarkStdMapGet100(b *testing.B)  { benchmarkStdMapGet(100, b) }
func BenchmarkStdMapGet1k(b *testing.B)   { benchmarkStdMapGet(1_000, b) }
func BenchmarkStdMapGet10k(b *testing.B)  { benchmarkStdMapGet(10_000, b) }
func BenchmarkStdMapGet100k(b *testing.B) { benchmarkStdMapGet(100_000, b) }

func benchmarkMapInsert(factor int, b *testing.B) {
	m := NewInMemory()
	for n := 0; n < factor*b.N; n++ {
		m, _, _ = m.Insert(n, n)
	}
}

func BenchmarkMapInsert1(b *testing.B)    { benchmarkMapInsert(1, b) }
func BenchmarkMapInsert10(b *testing.B)   { benchmarkMapInsert(10, b) }
func BenchmarkMapInsert100(b *testing.B)  { benchmarkMapInsert(100, b) }
func BenchmarkMapInsert1k(b *testing.B)   { benchmarkMapInsert(1_000, b) }
func BenchmarkMapInsert10k(b *testing.B)  { benchmarkMapInsert(10_000, b) }
func BenchmarkMapInsert100k(b *testing.B) { benchmarkMapInsert(100_000, b) }

func benchmarkMapGet(factor int, b *testing.B) {
	m := NewInMemory()
	b.StopTimer()
	for n := 0; n < factor*b.N; n++ {
		m, _, _ = m.Insert(n, n)
	}
	b.StartTimer()
	for n := 0; n < factor*b.N; n++ {
		m.Get(n)
	}
}

func BenchmarkMapGet1(b *testing.B)    { benchmarkMapGet(1, b) }
func BenchmarkMapGet10(b *testing.B)   { benchmarkMapGet(10, b) }
func BenchmarkMapGet100(b *testing.B)  { benchmarkMapGet(100, b) }
func BenchmarkMapGet1k(b *testing.B)   { benchmarkMapGet(1_000, b) }
func BenchmarkMapGet10k(b *testing.B)  { benchmarkMapGet(10_000, b) }
func BenchmarkMapGet100k(b *testing.B) { benchmarkMapGet(100_000, b) }

func benchmarkMapAtRank(factor int, b *testing.B) {
	m := NewInMemory()
	b.StopTimer()
	for n := 0; n < factor*b.N; n++ {
		m, _, _ = m.Insert(n, n)
	}
	b.StartTimer()
	for n := 0; n < factor*b.N; n++ {
		m.AtRank(uint64(n))
	}
}

func BenchmarkMapAtRank1(b *testing.B)    { benchmarkMapAtRank(1, b) }
func BenchmarkMapAtRank10(b *testing.B)   { benchmarkMapAtRank(10, b) }
func BenchmarkMapAtRank100(b *testing.B)  { benchmarkMapAtRank(100, b) }
func BenchmarkMapAtRank1k(b *testing.B)   { benchmarkMapAtRank(1_000, b) }
func BenchmarkMapAtRank10k(b *testing.B)  { benchmarkMapAtRank(10_000, b) }
func BenchmarkMapAtRank100k(b *testing.B) { benchmarkMapAtRank(100_000, b) }

func BenchmarkExerciser(b *testing.B) {
	parameters := gopter.DefaultTestParametersWithSeed(1593228262585360000)
	parameters.MaxSize = 2048
	parameters.MinSuccessfulTests = b.N
	properties := gopter.NewProperties(parameters)
	properties.Property("map exerciser", commands.Prop(mapCommands))
	out := bytes.NewBuffer(nil)
	reporter := gopter.NewFormatedReporter(false, 98, out)
	require.True(b, properties.Run(reporter))
}
