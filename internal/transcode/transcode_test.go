package transcode

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scriptsync/internal/archive"
	"github.com/roach88/scriptsync/internal/entry"
	"github.com/roach88/scriptsync/internal/manifest"
)

type slotDef struct {
	id      int64
	name    string
	content *string
}

func str(s string) *string { return &s }

func buildArchive(t *testing.T, slots ...slotDef) []byte {
	t.Helper()
	a := &archive.Archive{}
	for _, s := range slots {
		if s.content == nil {
			a.Append(s.id, s.name, archive.Empty())
			continue
		}
		compressed, err := entry.Compress([]byte(*s.content))
		require.NoError(t, err)
		a.Append(s.id, s.name, archive.Present(compressed))
	}
	data, err := archive.Encode(a)
	require.NoError(t, err)
	return data
}

func filesToFS(files []File) fstest.MapFS {
	m := fstest.MapFS{}
	for _, f := range files {
		m[f.Name] = &fstest.MapFile{Data: f.Content}
	}
	return m
}

func TestExport_Scenario(t *testing.T) {
	data := buildArchive(t,
		slotDef{1, "Main", str("")},
		slotDef{2, "", nil},
		slotDef{3, "Main", str("data")},
	)

	res, err := Export(data, DefaultOptions())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(res.Manifest), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[1], "EMPTY"))

	require.Len(t, res.Files, 2)
	assert.Equal(t, File{Index: 0, Name: "Main.rb", Content: []byte{}}, res.Files[0])
	assert.Equal(t, File{Index: 2, Name: "Main_2.rb", Content: []byte("data")}, res.Files[1])

	assert.Equal(t, []manifest.Record{
		{ID: 1, Name: "Main", Filename: "Main.rb"},
		{ID: 2, Name: "", Filename: "EMPTY"},
		{ID: 3, Name: "Main", Filename: "Main_2.rb"},
	}, res.Records)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		slots []slotDef
	}{
		{"zero slots", nil},
		{"single", []slotDef{{7, "Scene_Title", str("class Scene_Title\nend\n")}}},
		{"mixed", []slotDef{
			{-1, "▼ Materials", nil},
			{20, "Game_Temp", str("class Game_Temp; end")},
			{21, "", nil},
			{22, "Game_Temp", str("# dup name")},
			{1 << 35, "Big id", str("\x00\xff binary \r\n kept")},
			{23, "", str("unnamed script")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := buildArchive(t, tt.slots...)

			exported, err := Export(original, DefaultOptions())
			require.NoError(t, err)

			imported, err := Import(exported.Manifest, DirLookup{FS: filesToFS(exported.Files)}, DefaultOptions())
			require.NoError(t, err)
			assert.Empty(t, imported.Warnings)
			assert.Equal(t, len(tt.slots), imported.Slots)

			before, err := archive.Decode(original)
			require.NoError(t, err)
			after, err := archive.Decode(imported.Archive)
			require.NoError(t, err)
			require.Equal(t, before.Len(), after.Len())

			for i := range before.Slots {
				b, a := before.Slots[i], after.Slots[i]
				assert.Equal(t, b.ID, a.ID, "slot %d id", i)
				assert.Equal(t, b.Name, a.Name, "slot %d name", i)
				require.Equal(t, b.Payload.IsEmpty(), a.Payload.IsEmpty(), "slot %d emptiness", i)
				if b.Payload.IsEmpty() {
					continue
				}
				bc, err := entry.Decompress(b.Payload.Bytes())
				require.NoError(t, err)
				ac, err := entry.Decompress(a.Payload.Bytes())
				require.NoError(t, err)
				assert.Equal(t, bc, ac, "slot %d content", i)
			}
		})
	}
}

func TestExport_FilenamesUnique(t *testing.T) {
	var slots []slotDef
	for i := 0; i < 40; i++ {
		slots = append(slots, slotDef{int64(i), []string{"A", "a", "A_3", "", "B"}[i%5], str(fmt.Sprint(i))})
	}

	res, err := Export(buildArchive(t, slots...), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Files, 40)

	seen := map[string]bool{}
	for _, f := range res.Files {
		key := strings.ToLower(f.Name)
		require.False(t, seen[key], "duplicate %s", f.Name)
		seen[key] = true
	}
}

func TestExport_CorruptArchive(t *testing.T) {
	_, err := Export([]byte("not an archive"), DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, archive.ErrCorruptArchive)
}

func TestExport_CorruptPayload(t *testing.T) {
	a := &archive.Archive{}
	a.Append(1, "Good", archive.Present(mustCompress(t, "ok")))
	a.Append(2, "Bad", archive.Present([]byte("garbage")))
	data, err := archive.Encode(a)
	require.NoError(t, err)

	_, err = Export(data, DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, entry.ErrCorruptPayload)

	var slotErr *SlotError
	require.ErrorAs(t, err, &slotErr)
	assert.Equal(t, 1, slotErr.Index)
	assert.Equal(t, "Bad.rb", slotErr.Filename)
}

func TestExport_NameOverflow(t *testing.T) {
	opts := DefaultOptions()
	opts.Layout.NameWidth = 4
	_, err := Export(buildArchive(t, slotDef{1, "Too long", str("")}), opts)
	assert.ErrorIs(t, err, manifest.ErrColumnOverflow)
}

func TestImport_MissingFile(t *testing.T) {
	data := buildArchive(t,
		slotDef{1, "Kept", str("kept")},
		slotDef{2, "Lost", str("lost")},
		slotDef{3, "", nil},
	)
	exported, err := Export(data, DefaultOptions())
	require.NoError(t, err)

	fsys := filesToFS(exported.Files)
	delete(fsys, "Lost.rb")

	imported, err := Import(exported.Manifest, DirLookup{FS: fsys}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, imported.Warnings, 1)
	assert.Equal(t, 1, imported.Files)
	assert.Equal(t, 3, imported.Slots)

	w := imported.Warnings[0]
	assert.Equal(t, 1, w.Index)
	assert.Equal(t, "Lost.rb", w.Filename)
	assert.ErrorIs(t, w, ErrMissingSourceFile)
	assert.ErrorIs(t, w, fs.ErrNotExist)

	a, err := archive.Decode(imported.Archive)
	require.NoError(t, err)
	require.False(t, a.Slots[1].Payload.IsEmpty(), "missing file degrades to empty content, not EMPTY")
	content, err := entry.Decompress(a.Slots[1].Payload.Bytes())
	require.NoError(t, err)
	assert.Empty(t, content)

	kept, err := entry.Decompress(a.Slots[0].Payload.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "kept", string(kept))
	assert.True(t, a.Slots[2].Payload.IsEmpty())
}

func TestImport_EmptyRecordsNeverRead(t *testing.T) {
	text, err := manifest.Encode([]manifest.Record{
		{ID: 1, Filename: "EMPTY"},
		{ID: 2, Filename: "empty"},
	}, manifest.DefaultLayout())
	require.NoError(t, err)

	lookup := LookupFunc(func(name string) ([]byte, error) {
		t.Fatalf("unexpected lookup of %s", name)
		return nil, nil
	})

	res, err := Import(text, lookup, DefaultOptions())
	require.NoError(t, err)

	a, err := archive.Decode(res.Archive)
	require.NoError(t, err)
	require.Equal(t, 2, a.Len())
	assert.True(t, a.Slots[0].Payload.IsEmpty())
	assert.True(t, a.Slots[1].Payload.IsEmpty())
}

func TestImport_MalformedManifest(t *testing.T) {
	_, err := Import([]byte("short\n"), LookupFunc(func(string) ([]byte, error) { return nil, nil }), DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, manifest.ErrMalformedManifest)
}

func TestImport_LookupFailureIsFatal(t *testing.T) {
	text, err := manifest.Encode([]manifest.Record{{ID: 1, Name: "A", Filename: "A.rb"}}, manifest.DefaultLayout())
	require.NoError(t, err)

	denied := errors.New("permission denied")
	_, err = Import(text, LookupFunc(func(string) ([]byte, error) { return nil, denied }), DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, denied)
	assert.NotErrorIs(t, err, ErrMissingSourceFile)
}

func TestDirLookup_RejectsEscapes(t *testing.T) {
	_, err := DirLookup{FS: fstest.MapFS{}}.Lookup("../outside.rb")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrInvalid)
}

func TestGate(t *testing.T) {
	base := mustTime(t, "2026-10-19T10:00:00Z")

	tests := []struct {
		name string
		in   GateInput
		want Decision
	}{
		{"forced", GateInput{Force: true, ManifestExists: true, HasLastRun: true, LastRun: base, ArchiveModTime: base}, Decision{true, ReasonForced}},
		{"manifest missing", GateInput{HasLastRun: true, LastRun: base, ArchiveModTime: base.Add(-1)}, Decision{true, ReasonManifestMissing}},
		{"never exported", GateInput{ManifestExists: true, ArchiveModTime: base}, Decision{true, ReasonNeverExported}},
		{"modified", GateInput{ManifestExists: true, HasLastRun: true, LastRun: base, ArchiveModTime: base.Add(1)}, Decision{true, ReasonArchiveModified}},
		{"same time", GateInput{ManifestExists: true, HasLastRun: true, LastRun: base, ArchiveModTime: base}, Decision{false, ReasonUpToDate}},
		{"older", GateInput{ManifestExists: true, HasLastRun: true, LastRun: base, ArchiveModTime: base.Add(-1)}, Decision{false, ReasonUpToDate}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Gate{}.Decide(tt.in))
		})
	}
}

func mustCompress(t *testing.T, s string) []byte {
	t.Helper()
	b, err := entry.Compress([]byte(s))
	require.NoError(t, err)
	return b
}
