package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lydata/internal/schema"
	"github.com/roach88/lydata/internal/table"
)

const csvA = "patient,CT\n#,ipsi\nage,II\n61,True\n52,False\n"
const csvB = "patient,MRI\n#,ipsi\nage,II\n70,\n"

func TestDescriptor(t *testing.T) {
	d, err := ParseName("2023-ISB-multisite")
	require.NoError(t, err)
	assert.Equal(t, Descriptor{Year: 2023, Institution: "isb", Subsite: "multisite", Repo: DefaultRepo, Revision: DefaultRevision}, d)
	assert.Equal(t, "2023-isb-multisite", d.Name())
	assert.Equal(t, filepath.Join("root", "2023-isb-multisite", "data.csv"), d.Path("root"))
	assert.Equal(t, "https://raw.githubusercontent.com/rmnldwg/lydata/main/2023-isb-multisite/data.csv", d.URL())
	assert.Equal(t,
		"https://raw.githubusercontent.com/me/fork/v2/2023-isb-multisite/data.csv",
		d.WithSource("me/fork", "v2").URL())

	for _, bad := range []string{"2023-isb", "year-isb-multisite", "0000-isb-multisite", "9999-isb-multisite"} {
		_, err := ParseName(bad)
		assert.Error(t, err, bad)
	}
}

func TestDiscover(t *testing.T) {
	fsys := fstest.MapFS{
		"2021-usz-oropharynx/data.csv": {Data: []byte(csvA)},
		"2021-clb-oropharynx/data.csv": {Data: []byte(csvA)},
		"2023-isb-multisite/data.csv":  {Data: []byte(csvA)},
		"2023-isb-multisite/README.md": {Data: []byte("# x")},
		"2022-usz-empty/README.md":     {Data: []byte("# no data")},
		"scripts-and-more-stuff/x.csv": {Data: []byte("")},
		"docs/data.csv":                {Data: []byte("")},
	}

	all, err := DiscoverFS(fsys, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2021-clb-oropharynx", "2021-usz-oropharynx", "2023-isb-multisite"}, names(all))

	f := Filter{Year: "2021", Institution: "{usz,isb}"}
	some, err := DiscoverFS(fsys, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"2021-usz-oropharynx"}, names(some))
	assert.True(t, f.Match(some[0]))
	assert.False(t, f.Match(all[0]))

	_, err = DiscoverFS(fsys, Filter{Year: "[2021"})
	assert.Error(t, err)
}

type fakeFetcher struct {
	mu    sync.Mutex
	files map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, src, dst string) error {
	f.mu.Lock()
	f.calls = append(f.calls, src)
	f.mu.Unlock()
	body, ok := f.files[src]
	if !ok {
		return errors.Newf("404 %s", src)
	}
	return os.WriteFile(dst, []byte(body), 0o644)
}

func writeDataset(t *testing.T, root, name, body string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644))
}

func TestLoader_DiskThenRemote(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, "2021-usz-oropharynx", csvA)
	writeDataset(t, root, "2022-usz-broken", "patient\n#\n")

	usz, _ := ParseName("2021-usz-oropharynx")
	broken, _ := ParseName("2022-usz-broken")
	clb, _ := ParseName("2021-clb-oropharynx")

	ff := &fakeFetcher{files: map[string]string{
		broken.URL(): csvB,
		clb.URL():    csvB,
	}}
	l := &Loader{Root: root, Fetcher: ff}
	ctx := context.Background()

	tbl, err := l.Load(ctx, usz)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Empty(t, ff.calls)

	tbl, err = l.Load(ctx, broken)
	require.NoError(t, err, "parse failure falls back to remote")
	assert.Equal(t, 1, tbl.Len())

	tbl, err = l.Load(ctx, clb)
	require.NoError(t, err, "missing file falls back to remote")
	assert.True(t, tbl.Has(table.K("MRI", "ipsi", "II")))

	isb, _ := ParseName("2023-isb-multisite")
	_, err = l.Load(ctx, isb)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetch))

	_, err = (&Loader{Root: root}).Load(ctx, clb)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrFetch))
}

func TestLoader_SkipDisk(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, "2021-usz-oropharynx", csvA)
	usz, _ := ParseName("2021-usz-oropharynx")
	ff := &fakeFetcher{files: map[string]string{usz.URL(): csvB}}

	tbl, err := (&Loader{Root: root, Fetcher: ff, SkipDisk: true}).Load(context.Background(), usz)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, []string{usz.URL()}, ff.calls)
}

func TestLoader_Join(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, "2021-usz-oropharynx", csvA)
	writeDataset(t, root, "2021-clb-oropharynx", csvB)
	ds, err := Discover(root, Filter{})
	require.NoError(t, err)

	joined, err := (&Loader{Root: root}).Join(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, 3, joined.Len())
	ct, err := joined.Column(table.K("CT", "ipsi", "II"))
	require.NoError(t, err)
	// clb sorts first and has no CT column.
	assert.Equal(t, []table.Value{table.Null{}, table.Bool(true), table.Bool(false)}, ct)
}

func TestValidateAll(t *testing.T) {
	root := t.TempDir()
	writeDataset(t, root, "2021-clb-oropharynx", csvA)
	writeDataset(t, root, "2021-usz-oropharynx", csvA)
	ds, err := Discover(root, Filter{})
	require.NoError(t, err)

	s := schema.New(schema.Column{Key: table.K("patient", "#", "age"), Type: schema.TypeInt, Required: true, Checks: []schema.Check{schema.InRange(55, 99)}})
	l := &Loader{Root: root}

	res, err := ValidateAll(context.Background(), l, ds, s, schema.BatchFailFast)
	require.Error(t, err)
	assert.Len(t, res, 1)

	res, err = ValidateAll(context.Background(), l, ds, s, schema.BatchCollectAll)
	require.Error(t, err)
	assert.Len(t, res, 2)
}

func TestGetterFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2021-usz-oropharynx/data.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(csvA))
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "data.csv")
	err := GetterFetcher{}.Fetch(context.Background(), srv.URL+"/2021-usz-oropharynx/data.csv", dst)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, csvA, string(got))

	err = GetterFetcher{}.Fetch(context.Background(), srv.URL+"/missing/data.csv", filepath.Join(t.TempDir(), "x.csv"))
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	readme := "# 2021 USZ Oropharynx\n\nPatients treated at USZ.\n\n```\n## not a heading\n```\n\n## Columns\n\nLong table.\n"
	assert.Equal(t, "# 2021 USZ Oropharynx\n\nPatients treated at USZ.\n\n```\n## not a heading\n```",
		ShortDescription(readme))

	root := t.TempDir()
	usz, _ := ParseName("2021-usz-oropharynx")
	ff := &fakeFetcher{files: map[string]string{usz.ReadmeURL(): readme}}
	l := &Loader{Root: root, Fetcher: ff}

	desc, err := l.Describe(context.Background(), usz)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(desc, "# 2021 USZ Oropharynx"))

	require.NoError(t, os.MkdirAll(filepath.Join(root, usz.Name()), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, usz.Name(), "README.md"), []byte("# Local\n## More"), 0o644))
	desc, err = l.Describe(context.Background(), usz)
	require.NoError(t, err)
	assert.Equal(t, "# Local", desc)
	assert.Len(t, ff.calls, 1)
}

func names(ds []Descriptor) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name()
	}
	return out
}
