// SPDX-License-Identifier: MIT

package media

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 29.97002997002997},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
		{"garbage", 0},
		{"30/0", 0},
	}
	for _, tc := range tests {
		require.InDelta(t, tc.want, parseRate(tc.in), 1e-9, "input %q", tc.in)
	}
}

func TestFrameSize(t *testing.T) {
	p := StreamProps{Width: 640, Height: 480}
	require.Equal(t, 640*480*3, p.FrameSize())
}

func TestLineRingKeepsLastLines(t *testing.T) {
	r := newLineRing(3)
	_, err := r.Write([]byte("one\ntwo\nthree\nfour\npartial"))
	require.NoError(t, err)
	require.Equal(t, []string{"three", "four"}, r.Last(2))
	require.Equal(t, []string{"two", "three", "four"}, r.Last(10))

	// A later write completes the partial line.
	_, err = r.Write([]byte(" done\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"four", "partial done"}, r.Last(2))
}

func TestNewWriterRejectsInvalidProps(t *testing.T) {
	f := &FFmpegWriterFactory{}
	_, err := f.NewWriter("/tmp/out.mp4", StreamProps{Width: 0, Height: 480, FPS: 30})
	require.Error(t, err)
	_, err = f.NewWriter("/tmp/out.mp4", StreamProps{Width: 640, Height: 480, FPS: 0})
	require.Error(t, err)
}
