package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{"00:00", TimeOfDay{0, 0}, false},
		{"23:59", TimeOfDay{23, 59}, false},
		{"06:30", TimeOfDay{6, 30}, false},
		{"24:00", TimeOfDay{}, true},
		{"12:60", TimeOfDay{}, true},
		{"-1:00", TimeOfDay{}, true},
		{"noon", TimeOfDay{}, true},
		{"", TimeOfDay{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTimeOfDay_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "06:05", TimeOfDay{6, 5}.String())
	assert.Equal(t, "23:59", TimeOfDay{23, 59}.String())
}

func TestParseActiveWindow(t *testing.T) {
	t.Parallel()

	// Both empty: always active, no window.
	w, err := ParseActiveWindow("", "")
	require.NoError(t, err)
	assert.Nil(t, w)

	// Only one side set is an error.
	_, err = ParseActiveWindow("06:00", "")
	assert.Error(t, err)
	_, err = ParseActiveWindow("", "18:00")
	assert.Error(t, err)

	w, err = ParseActiveWindow("06:00", "18:00")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, TimeOfDay{6, 0}, w.Start)
	assert.Equal(t, TimeOfDay{18, 0}, w.End)

	_, err = ParseActiveWindow("25:00", "18:00")
	assert.Error(t, err)
}

func TestActiveWindow_Contains(t *testing.T) {
	t.Parallel()

	at := func(hour, minute int) time.Time {
		return time.Date(2026, 6, 1, hour, minute, 0, 0, time.UTC)
	}

	day := &ActiveWindow{Start: TimeOfDay{6, 0}, End: TimeOfDay{18, 0}}
	assert.True(t, day.Contains(at(6, 0)))
	assert.True(t, day.Contains(at(12, 0)))
	assert.True(t, day.Contains(at(17, 59)))
	assert.False(t, day.Contains(at(18, 0)))
	assert.False(t, day.Contains(at(3, 0)))
	assert.False(t, day.Contains(at(23, 0)))

	// Spanning midnight: 22:00 to 06:00.
	night := &ActiveWindow{Start: TimeOfDay{22, 0}, End: TimeOfDay{6, 0}}
	assert.True(t, night.Contains(at(23, 30)))
	assert.True(t, night.Contains(at(0, 0)))
	assert.True(t, night.Contains(at(5, 59)))
	assert.False(t, night.Contains(at(6, 0)))
	assert.False(t, night.Contains(at(12, 0)))

	// Start equal to end: always active.
	always := &ActiveWindow{Start: TimeOfDay{8, 0}, End: TimeOfDay{8, 0}}
	assert.True(t, always.Contains(at(0, 0)))
	assert.True(t, always.Contains(at(8, 0)))
	assert.True(t, always.Contains(at(20, 0)))
}
