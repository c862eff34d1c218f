package eqpush

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqpush/eqpush-go/internal/safefile"
)

func TestReadLines(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		offset   int64
		max      int
		want     []string
		wantNext int64
		wantErr  error
	}{
		{
			name:     "empty from zero",
			content:  "",
			want:     nil,
			wantNext: 0,
		},
		{
			name:     "complete lines",
			content:  "a\nbb\n",
			want:     []string{"a", "bb"},
			wantNext: 5,
		},
		{
			name:     "crlf",
			content:  "a\r\nb\r\n",
			want:     []string{"a", "b"},
			wantNext: 6,
		},
		{
			name:     "partial tail left",
			content:  "a\npart",
			want:     []string{"a"},
			wantNext: 2,
		},
		{
			name:     "from offset",
			content:  "skip\nkeep\n",
			offset:   5,
			want:     []string{"keep"},
			wantNext: 10,
		},
		{
			name:     "blank lines dropped but consumed",
			content:  "\n\nx\n",
			want:     []string{"x"},
			wantNext: 4,
		},
		{
			name:     "at end",
			content:  "done\n",
			offset:   5,
			want:     nil,
			wantNext: 5,
		},
		{
			name:    "truncated",
			content: "ab\n",
			offset:  10,
			wantErr: safefile.ErrTruncated,
		},
		{
			name:    "partial too long",
			content: "ok\n0123456789",
			max:     5,
			wantErr: ErrLineTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "eqlog_Test_x.txt")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			max := tt.max
			if max == 0 {
				max = DefaultMaxLineBytes
			}
			lines, next, err := readLines(path, tt.offset, nil, max)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, lines)
				assert.Equal(t, tt.offset, next, "offset unchanged on error")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, lines)
			assert.Equal(t, tt.wantNext, next)
		})
	}
}

func TestReadLines_NotRegular(t *testing.T) {
	_, _, err := readLines(t.TempDir(), 0, nil, DefaultMaxLineBytes)
	assert.ErrorIs(t, err, safefile.ErrNotRegularFile)
}

func TestReadLines_Replaced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eqlog_Test_x.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o644))
	info, err := safefile.Stat(path)
	require.NoError(t, err)

	lines, next, err := readLines(path, 0, info, DefaultMaxLineBytes)
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, lines)

	// A longer file renamed over the path must not be read from the old offset.
	tmp := filepath.Join(dir, "replacement.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("AAAAAAAAAAAA first\nsecond\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	lines, got, err := readLines(path, next, info, DefaultMaxLineBytes)
	assert.ErrorIs(t, err, safefile.ErrReplaced)
	assert.Nil(t, lines)
	assert.Equal(t, next, got)
}
