package calendar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDayOffset(t *testing.T) {
	season, err := NewSeason("May 1", "August 31")
	require.NoError(t, err)

	cases := []struct {
		expr string
		want int
	}{
		{"May 1", 0},
		{"May 9", 8},
		{"June 1", 31},
		{"  July 4 ", 64},
		{"august 31", 122},
		{"April 30", -1},
	}

	for _, c := range cases {
		got, err := season.DayOffset(c.expr)
		require.NoError(t, err, c.expr)
		require.Equal(t, c.want, got, c.expr)
	}

	// 5 月 1 日到 8 月 31 日共 123 天
	require.Equal(t, 123, season.Length())
}

func TestDayOffsetInvalid(t *testing.T) {
	season, err := NewSeason("May 1", "August 31")
	require.NoError(t, err)

	for _, expr := range []string{"", "May", "Mai 3", "May x", "February 29", "June 31", "May 1 2024"} {
		_, err := season.DayOffset(expr)
		require.ErrorIs(t, err, ErrInvalidDateFormat, expr)
	}
}

func TestNewSeason(t *testing.T) {
	_, err := NewSeason("August 31", "May 1")
	require.ErrorIs(t, err, ErrInvalidSeason)

	_, err = NewSeason("Someday", "May 1")
	require.ErrorIs(t, err, ErrInvalidDateFormat)

	// 单日赛季
	season, err := NewSeason("June 15", "June 15")
	require.NoError(t, err)
	require.Equal(t, 1, season.Length())
	require.Equal(t, "June 15", season.Start())
}

func TestDate(t *testing.T) {
	season, err := NewSeason("May 1", "August 31")
	require.NoError(t, err)

	require.Equal(t, "May 1", season.Date(0))
	require.Equal(t, "June 1", season.Date(31))
	require.Equal(t, "August 31", season.Date(122))
	require.Equal(t, "April 30", season.Date(-1))
	require.Equal(t, "", season.Date(400))

	for offset := 0; offset < season.Length(); offset++ {
		got, err := season.DayOffset(season.Date(offset))
		require.NoError(t, err)
		require.Equal(t, offset, got)
	}
}
