package entry

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompress_RoundTrip(t *testing.T) {
	cases := map[string][]byte{
		"text":   []byte("class Scene_Title < Scene_Base\nend\n"),
		"binary": {0x00, 0xff, 0x10, 0x0d, 0x0a, 0x00},
		"large":  bytes.Repeat([]byte("def update; end\n"), 4096),
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			compressed, err := Compress(content)
			require.NoError(t, err)

			got, err := Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, content, got)
		})
	}
}

func TestCompress_EmptyContent(t *testing.T) {
	compressed, err := Compress(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, compressed, "empty content still has a zlib header and checksum")

	got, err := Decompress(compressed)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecompress_Corrupt(t *testing.T) {
	valid, err := Compress([]byte("print 'hello'"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"not zlib", []byte("plain text")},
		{"truncated", valid[:len(valid)-3]},
		{"bad checksum", append(append([]byte{}, valid[:len(valid)-1]...), valid[len(valid)-1]^0xff)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decompress(tt.payload)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptPayload)
		})
	}
}
