package catalog_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubemix/internal/catalog"
	"cubemix/internal/lut"
	"cubemix/internal/testsupport"
)

func TestInferCategory(t *testing.T) {
	tests := map[string]catalog.Category{
		"Sony_SLog3_to_Rec709.cube": catalog.CategoryTechnical,
		"S-Log3 Conversion.cube":    catalog.CategoryTechnical,
		"classic-bw.cube":           catalog.CategoryBlackWhite,
		"Noir.cube":                 catalog.CategoryBlackWhite,
		"teal_orange.cube":          catalog.CategoryCinematic,
		"Kodak 2383 print.cube":     catalog.CategoryCinematic,
		"retro-summer.cube":         catalog.CategoryVintage,
		"dreamy.cube":               catalog.CategoryCreative,
		"blog_post.cube":            catalog.CategoryCreative,
	}
	for name, want := range tests {
		assert.Equal(t, want, catalog.InferCategory(name), name)
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Teal Orange V2", catalog.DisplayName("teal_orange-v2.cube"))
	assert.Equal(t, "Warm Sunset", catalog.DisplayName("WARM  sunset.cube"))
	assert.Equal(t, "Untitled", catalog.DisplayName("___.cube"))
}

func TestParseCategory(t *testing.T) {
	got, err := catalog.ParseCategory("black and white")
	require.NoError(t, err)
	assert.Equal(t, catalog.CategoryBlackWhite, got)

	got, err = catalog.ParseCategory(" CINEMATIC ")
	require.NoError(t, err)
	assert.Equal(t, catalog.CategoryCinematic, got)

	_, err = catalog.ParseCategory("sparkly")
	assert.Error(t, err)
}

func TestLoadScansDirectoryAndReportsProblems(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteCube(t, dir, "teal_orange.cube", lut.Identity(4))
	testsupport.WriteCube(t, dir, "dim.cube", testsupport.ScaledCube(t, 3, 0.5))
	testsupport.WriteFile(t, filepath.Join(dir, "broken.cube"), []byte("LUT_3D_SIZE 2\n0 0 0\n"))
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), []byte("ignore me"))

	cat, err := catalog.Load(dir, catalog.Options{})
	require.NoError(t, err)
	require.Len(t, cat.Entries, 2)
	require.Len(t, cat.Problems, 1)
	assert.Equal(t, "broken.cube", cat.Problems[0].File)
	assert.ErrorIs(t, cat.Problems[0].Err, lut.ErrParse)

	assert.Equal(t, "Dim", cat.Entries[0].DisplayName)
	assert.Equal(t, "Teal Orange", cat.Entries[1].DisplayName)

	teal, ok := cat.Lookup("TEAL_ORANGE")
	require.True(t, ok)
	assert.Equal(t, catalog.CategoryCinematic, teal.Category)
	assert.Equal(t, 4, teal.Size)
	assert.Equal(t, "#808080", teal.Tint)

	dim, ok := cat.Lookup("dim.cube")
	require.True(t, ok)
	assert.Equal(t, "#404040", dim.Tint)

	_, ok = cat.Lookup("teal orange")
	assert.True(t, ok, "display name lookup")

	data, entry, err := cat.ReadFile("dim")
	require.NoError(t, err)
	assert.Equal(t, "dim.cube", entry.File)
	table, err := lut.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Size())

	_, _, err = cat.ReadFile("missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestLoadAppliesManifest(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteCube(t, dir, "a.cube", lut.Identity(2))
	testsupport.WriteCube(t, dir, "secret.cube", lut.Identity(2))
	testsupport.WriteFile(t, filepath.Join(dir, catalog.ManifestName), []byte(`
[[lut]]
file = "a.cube"
name = "Golden Hour"
category = "vintage"
tint = "#FFAA00"

[[lut]]
file = "secret.cube"
hidden = true

[[lut]]
file = "gone.cube"
`))

	cat, err := catalog.Load(dir, catalog.Options{})
	require.NoError(t, err)
	require.Len(t, cat.Entries, 1)
	entry := cat.Entries[0]
	assert.Equal(t, "Golden Hour", entry.DisplayName)
	assert.Equal(t, catalog.CategoryVintage, entry.Category)
	assert.Equal(t, "#ffaa00", entry.Tint)
	require.Len(t, cat.Problems, 1)
	assert.Equal(t, "gone.cube", cat.Problems[0].File)

	withHidden, err := catalog.Load(dir, catalog.Options{IncludeHidden: true})
	require.NoError(t, err)
	assert.Len(t, withHidden.Entries, 2)

	groups := withHidden.ByCategory()
	assert.Len(t, groups[catalog.CategoryVintage], 1)
	assert.Len(t, groups[catalog.CategoryCreative], 1)
}

func TestLoadRejectsBadManifest(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, catalog.ManifestName), []byte("[[lut]]\nfile = \"a.cube\"\ncolour = \"red\"\n"))
	_, err := catalog.Load(dir, catalog.Options{})
	assert.Error(t, err)

	_, err = catalog.Load(filepath.Join(dir, "nope"), catalog.Options{})
	assert.Error(t, err)
}

func TestAddCopiesValidLUT(t *testing.T) {
	srcDir := t.TempDir()
	dir := t.TempDir()
	src := testsupport.WriteCube(t, srcDir, "download.cube", testsupport.ScaledCube(t, 3, 0.5))

	entry, err := catalog.Add(dir, src, catalog.AddOptions{Name: "Moody Noir"})
	require.NoError(t, err)
	assert.Equal(t, "Moody Noir.cube", entry.File)
	assert.Equal(t, catalog.CategoryBlackWhite, entry.Category)
	assert.Equal(t, "#404040", entry.Tint)

	cat, err := catalog.Load(dir, catalog.Options{})
	require.NoError(t, err)
	_, ok := cat.Lookup("moody noir")
	assert.True(t, ok)

	_, err = catalog.Add(dir, src, catalog.AddOptions{Name: "Moody Noir"})
	assert.Error(t, err, "existing file is not replaced without Overwrite")
	_, err = catalog.Add(dir, src, catalog.AddOptions{Name: "Moody Noir", Overwrite: true})
	assert.NoError(t, err)
}

func TestAddRejectsInvalidLUT(t *testing.T) {
	srcDir := t.TempDir()
	dir := t.TempDir()
	src := filepath.Join(srcDir, "broken.cube")
	testsupport.WriteFile(t, src, []byte("LUT_3D_SIZE 2\n0 0 0\n"))

	_, err := catalog.Add(dir, src, catalog.AddOptions{})
	require.ErrorIs(t, err, lut.ErrParse)

	cat, err := catalog.Load(dir, catalog.Options{})
	require.NoError(t, err)
	assert.Empty(t, cat.Entries)
}
