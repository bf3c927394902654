package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, string) {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, ".flowcache")), dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStatusBeforeAnyUpdateIsUntracked(t *testing.T) {
	c, _ := newTestCache(t)
	assert.Equal(t, StatusUntracked, c.Status("/no/such/path", "place"))
}

func TestUpdateNewFileIsChanged(t *testing.T) {
	c, dir := newTestCache(t)
	path := writeFile(t, dir, "top.eblif", "netlist v1")

	changed, err := c.Update(path, "place")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusChanged, c.Status(path, "place"))
}

func TestUpdateUnchangedFileIsSame(t *testing.T) {
	c, dir := newTestCache(t)
	path := writeFile(t, dir, "top.eblif", "netlist v1")

	_, err := c.Update(path, "place")
	require.NoError(t, err)

	changed, err := c.Update(path, "place")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, StatusSame, c.Status(path, "place"))
}

func TestUpdateModifiedFileIsChanged(t *testing.T) {
	c, dir := newTestCache(t)
	path := writeFile(t, dir, "top.eblif", "netlist v1")

	_, err := c.Update(path, "place")
	require.NoError(t, err)

	writeFile(t, dir, "top.eblif", "netlist v2")
	changed, err := c.Update(path, "place")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusChanged, c.Status(path, "place"))

	// The stored fingerprint now reflects the new content.
	changed, err = c.Update(path, "place")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestConsumersTrackIndependently(t *testing.T) {
	c, dir := newTestCache(t)
	path := writeFile(t, dir, "top.net", "v1")

	_, err := c.Update(path, "place")
	require.NoError(t, err)
	_, err = c.Update(path, "route")
	require.NoError(t, err)

	writeFile(t, dir, "top.net", "v2")
	changed, err := c.Update(path, "place")
	require.NoError(t, err)
	assert.True(t, changed)

	// route has not observed the new content yet; its record is intact.
	assert.Equal(t, StatusChanged, c.Status(path, "route"))
	changed, err = c.Update(path, "route")
	require.NoError(t, err)
	assert.True(t, changed, "route must see the change on its own update")
}

func TestVanishedPathDropsConsumerAndReportsChanged(t *testing.T) {
	c, dir := newTestCache(t)
	path := writeFile(t, dir, "top.fasm", "bits")

	_, err := c.Update(path, "bitstream")
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	changed, err := c.Update(path, "bitstream")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusUntracked, c.Status(path, "bitstream"))
}

func TestPrunedPathDoesNotResurrectAcrossSaveLoad(t *testing.T) {
	c, dir := newTestCache(t)
	path := writeFile(t, dir, "top.fasm", "bits")

	_, err := c.Update(path, "bitstream")
	require.NoError(t, err)
	_, err = c.Update(path, DirectTarget)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	_, err = c.Update(path, "bitstream")
	require.NoError(t, err)
	_, err = c.Update(path, DirectTarget)
	require.NoError(t, err)

	require.NoError(t, c.Save())

	reloaded := New(c.path)
	reloaded.Load(context.Background())
	assert.Equal(t, StatusUntracked, reloaded.Status(path, "bitstream"))
	assert.Equal(t, StatusUntracked, reloaded.Status(path, DirectTarget))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c, dir := newTestCache(t)
	a := writeFile(t, dir, "a.eblif", "aaa")
	b := writeFile(t, dir, "b.net", "bbb")

	_, err := c.Update(a, "place")
	require.NoError(t, err)
	_, err = c.Update(a, "route")
	require.NoError(t, err)
	_, err = c.Update(b, DirectTarget)
	require.NoError(t, err)
	require.NoError(t, c.Save())

	reloaded := New(c.path)
	reloaded.Load(context.Background())

	assert.Equal(t, StatusChanged, reloaded.Status(a, "place"))
	assert.Equal(t, StatusChanged, reloaded.Status(a, "route"))
	assert.Equal(t, StatusChanged, reloaded.Status(b, DirectTarget))

	// Fingerprints survived: an update over unchanged content reports same.
	changed, err := reloaded.Update(a, "place")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestLoadMissingFileYieldsEmptyCache(t *testing.T) {
	c, _ := newTestCache(t)
	c.Load(context.Background())
	assert.Equal(t, StatusUntracked, c.Status("x", "y"))
}

func TestLoadCorruptFileYieldsEmptyCache(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, os.WriteFile(c.path, []byte("{not json"), 0o644))

	c.Load(context.Background())
	assert.Equal(t, StatusUntracked, c.Status("x", "y"))
}

func TestLoadNullEntriesYieldsUsableCache(t *testing.T) {
	// null is valid JSON and decodes without error, leaving nil maps
	// behind; a subsequent update of the same path must still work.
	fixtures := map[string]func(path string) string{
		"null table": func(string) string { return `null` },
		"null path":  func(path string) string { return fmt.Sprintf(`{%q: null}`, path) },
	}
	for name, payload := range fixtures {
		t.Run(name, func(t *testing.T) {
			c, dir := newTestCache(t)
			path := writeFile(t, dir, "top.eblif", "netlist")
			require.NoError(t, os.WriteFile(c.path, []byte(payload(path)), 0o644))
			c.Load(context.Background())

			changed, err := c.Update(path, "place")
			require.NoError(t, err)
			assert.True(t, changed)
			assert.Equal(t, StatusChanged, c.Status(path, "place"))
		})
	}
}

func TestDirectoryTrackedByExistenceOnly(t *testing.T) {
	c, dir := newTestCache(t)
	sub := filepath.Join(dir, "build")
	require.NoError(t, os.Mkdir(sub, 0o755))

	changed, err := c.Update(sub, "place")
	require.NoError(t, err)
	assert.True(t, changed)

	// Adding files beneath the directory does not affect its fingerprint.
	writeFile(t, sub, "new_file.log", "contents")
	changed, err = c.Update(sub, "place")
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.RemoveAll(sub))
	changed, err = c.Update(sub, "place")
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestSymlinkCountsAsPresent(t *testing.T) {
	c, dir := newTestCache(t)
	target := writeFile(t, dir, "real.net", "v1")
	link := filepath.Join(dir, "link.net")
	require.NoError(t, os.Symlink(target, link))

	changed, err := c.Update(link, "route")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = c.Update(link, "route")
	require.NoError(t, err)
	assert.False(t, changed)

	// Dangling symlink still counts as present, not vanished.
	require.NoError(t, os.Remove(target))
	_, err = c.Update(link, "route")
	require.NoError(t, err)
	assert.NotEqual(t, StatusUntracked, c.Status(link, "route"))
}
