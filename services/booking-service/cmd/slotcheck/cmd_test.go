package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clinicHours = `[
  {"day_of_week": 0, "is_closed": true},
  {"day_of_week": 1, "start_time": "07:00", "end_time": "17:00", "is_closed": false},
  {"day_of_week": 2, "start_time": "07:00", "end_time": "17:00", "is_closed": false}
]`

const bookings = `[
  {"start_time": "2026-01-05T10:00:00", "end_time": "2026-01-05T11:00:00", "status": "confirmed"},
  {"start_time": "2026-01-05T12:00:00", "end_time": "2026-01-05T13:00:00", "status": "cancelled"}
]`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSlotsCommand(t *testing.T) {
	hours := writeFile(t, "hours.json", clinicHours)
	booked := writeFile(t, "bookings.json", bookings)

	out, err := execute(t, "slots", "--hours", hours, "--bookings", booked, "--date", "2026-01-05", "--duration", "60")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 9)
	assert.Equal(t, "2026-01-05T07:00  7:00 AM - 8:00 AM", lines[0])
	assert.NotContains(t, out, "10:00 AM - 11:00 AM")
	assert.Contains(t, out, "12:00 PM - 1:00 PM")

	out, err = execute(t, "slots", "--hours", hours, "--date", "2026-01-04")
	require.NoError(t, err)
	assert.Contains(t, out, "no free slots on 2026-01-04 (Sunday)")
}

func TestBookableCommand(t *testing.T) {
	hours := writeFile(t, "hours.json", clinicHours)
	booked := writeFile(t, "bookings.json", bookings)

	out, err := execute(t, "bookable", "--hours", hours, "--bookings", booked,
		"--start", "2026-01-05T10:30:00", "--end", "2026-01-05T11:30:00")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "not bookable"))

	out, err = execute(t, "bookable", "--hours", hours, "--bookings", booked,
		"--start", "2026-01-05T11:00:00", "--end", "2026-01-05T12:00:00")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "bookable"))
}

func TestCommandErrors(t *testing.T) {
	hours := writeFile(t, "hours.json", clinicHours)

	_, err := execute(t, "slots", "--date", "2026-01-05")
	assert.Error(t, err, "missing --hours")

	_, err = execute(t, "slots", "--hours", hours, "--date", "Jan 5")
	assert.ErrorContains(t, err, "invalid --date")

	_, err = execute(t, "slots", "--hours", writeFile(t, "bad.json", "{"), "--date", "2026-01-05")
	assert.ErrorContains(t, err, "decode")

	_, err = execute(t, "bookable", "--hours", hours, "--start", "2026-01-05T11:00:00", "--end", "2026-01-05T10:00:00")
	assert.Error(t, err)
}
