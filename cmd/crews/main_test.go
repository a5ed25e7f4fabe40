package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleData = "../../internal/seed/data/rangers.csv"

func quickOptions(t *testing.T, extra ...string) *options {
	t.Helper()

	args := append([]string{
		"-in", sampleData,
		"-initial-temperature", "100",
		"-cooling-rate", "0.99",
		"-final-temperature", "0.01",
		"-seed", "3",
	}, extra...)

	opts, err := parseOptions(args)
	require.NoError(t, err)
	return opts
}

func TestParseOptions(t *testing.T) {
	_, err := parseOptions(nil)
	require.Error(t, err)

	opts := quickOptions(t, "-restarts", "3")
	require.Equal(t, sampleData, opts.In)
	require.Equal(t, 0.99, opts.Annealing.CoolingRate)
	require.EqualValues(t, 3, opts.Annealing.Seed)
	require.Equal(t, 3, opts.Annealing.Restarts)

	// 未给出种子时使用当前时间
	opts, err = parseOptions([]string{"-in", sampleData, "-seed", "0"})
	require.NoError(t, err)
	require.NotZero(t, opts.Annealing.Seed)
}

func TestRunWritesAssignment(t *testing.T) {
	var out bytes.Buffer
	res, err := run(context.Background(), quickOptions(t), &out)
	require.NoError(t, err)
	require.EqualValues(t, 3, res.Seed)

	rows, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 19) // 表头加 18 名队员

	header := rows[0]
	require.Equal(t, "Crew", header[len(header)-1])

	// 18 人分成 2 个 5 人分队和 2 个 4 人分队
	sizes := make(map[string]int)
	for _, row := range rows[1:] {
		sizes[row[len(row)-1]]++
	}
	require.Equal(t, map[string]int{"1": 5, "2": 5, "3": 4, "4": 4}, sizes)
}

func TestRunToFileIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.csv")
	second := filepath.Join(dir, "second.csv")

	_, err := run(context.Background(), quickOptions(t, "-out", first), nil)
	require.NoError(t, err)
	_, err = run(context.Background(), quickOptions(t, "-out", second), nil)
	require.NoError(t, err)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestRunRejectsBadSeason(t *testing.T) {
	_, err := run(context.Background(), quickOptions(t, "-season-start", "Smarch 1"), &bytes.Buffer{})
	require.Error(t, err)
}
