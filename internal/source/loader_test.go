package source

import (
	"context"
	"encoding/csv"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/hivdash/internal/core"
	"github.com/JonMunkholm/hivdash/internal/core/coretest"
	"github.com/JonMunkholm/hivdash/internal/core/sources"
)

// worldBankPreamble is the block a World Bank download carries above its header.
var worldBankPreamble = [][]string{
	{"Data Source", "World Development Indicators"},
	{""},
	{"Last Updated Date", "2024-06-28"},
	{""},
}

// writeFixtureDir writes the fixture tables as provider-shaped CSV files.
func writeFixtureDir(t *testing.T, reg *core.Registry) string {
	t.Helper()
	dir := t.TempDir()
	raw := coretest.Raw()

	for _, def := range reg.All() {
		tbl := raw[def.Info.Key]
		f, err := os.Create(filepath.Join(dir, def.Info.File))
		require.NoError(t, err)

		if def.Info.Layout == core.LayoutWide {
			_, err = f.Write([]byte{0xEF, 0xBB, 0xBF})
			require.NoError(t, err)
		}

		w := csv.NewWriter(f)
		if def.Info.Layout == core.LayoutWide {
			require.NoError(t, w.WriteAll(worldBankPreamble))
		}
		require.NoError(t, w.Write(tbl.Header))
		require.NoError(t, w.WriteAll(tbl.Rows))
		require.NoError(t, f.Close())
	}
	return dir
}

func TestLoadAll_DirLoader(t *testing.T) {
	reg, err := sources.Default()
	require.NoError(t, err)
	dir := writeFixtureDir(t, reg)

	raw, err := LoadAll(context.Background(), NewDirLoader(dir), reg)
	require.NoError(t, err)
	assert.Len(t, raw, reg.Count())

	want := coretest.Raw()
	for key, tbl := range raw {
		assert.Equal(t, want[key].Header, tbl.Header, key)
		assert.Len(t, tbl.Rows, len(want[key].Rows), key)
		assert.Equal(t, key, tbl.Name)
	}

	ds, err := core.Build(reg, raw)
	require.NoError(t, err)
	assert.NotEmpty(t, ds.CountryRecords("Vietnam"))
}

func TestLoadAll_MissingFile(t *testing.T) {
	reg, err := sources.Default()
	require.NoError(t, err)
	dir := writeFixtureDir(t, reg)

	def, _ := reg.Get(core.SourcePrevalenceFemale)
	require.NoError(t, os.Remove(filepath.Join(dir, def.Info.File)))

	_, err = LoadAll(context.Background(), NewDirLoader(dir), reg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
	assert.Equal(t, "SRC002", core.MapError(err).Code)
}

type stubLoader struct {
	fail string
}

func (s stubLoader) Name() string { return "stub" }

func (s stubLoader) Load(ctx context.Context, def core.SourceDefinition) (core.RawTable, error) {
	if def.Info.Key == s.fail {
		return core.RawTable{}, errors.New("connection refused")
	}
	if err := ctx.Err(); err != nil {
		return core.RawTable{}, err
	}
	return coretest.Raw()[def.Info.Key], nil
}

func TestLoadAll_FirstErrorWins(t *testing.T) {
	reg, err := sources.Default()
	require.NoError(t, err)

	_, err = LoadAll(context.Background(), stubLoader{fail: core.SourceARTCoverage}, reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDirLoader_CancelledContext(t *testing.T) {
	reg, err := sources.Default()
	require.NoError(t, err)
	def, _ := reg.Get(core.SourceDeathsNewCases)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewDirLoader(t.TempDir()).Load(ctx, def)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseCSV(t *testing.T) {
	def := core.SourceDefinition{
		Info:   core.SourceInfo{Key: "male", Layout: core.LayoutWide, Measure: core.MeasurePrevalenceMale},
		Schema: core.SchemaSpec{CodeColumns: []string{"Country Code"}},
	}

	tests := []struct {
		name       string
		input      string
		wantHeader []string
		wantRows   int
		wantErr    bool
	}{
		{
			name:       "plain header",
			input:      "Country Name,Country Code,1990\nViet Nam,VNM,0.1\n",
			wantHeader: []string{"Country Name", "Country Code", "1990"},
			wantRows:   1,
		},
		{
			name:       "preamble and trailing comma",
			input:      "\"Data Source\",\"World Development Indicators\",\n\n\"Country Name\",\"Country Code\",\"1990\",\n\"Viet Nam\",\"VNM\",\"0.1\",\n,,,\n",
			wantHeader: []string{"Country Name", "Country Code", "1990"},
			wantRows:   1,
		},
		{
			name:    "no code column",
			input:   "Name,ISO,1990\nViet Nam,VNM,0.1\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCSV(strings.NewReader(tt.input), def)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrSchemaMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHeader, got.Header)
			assert.Len(t, got.Rows, tt.wantRows)
		})
	}
}

func TestCellText(t *testing.T) {
	assert.Equal(t, "", cellText(nil))
	assert.Equal(t, "VNM", cellText("VNM"))
	assert.Equal(t, "0.25", cellText(0.25))
	assert.Equal(t, "2019", cellText(int64(2019)))
	assert.Equal(t, "2019", cellText(int32(2019)))
}

func TestHasCodeColumn(t *testing.T) {
	codes := []string{"Code", "Country Code"}

	tests := []struct {
		name   string
		header []string
		want   bool
	}{
		{"canonical", []string{"Entity", "Code", "Year"}, true},
		{"folded by postgres", []string{"country name", "country code", "1990"}, true},
		{"lower canonical", []string{"entity", "code", "year"}, true},
		{"missing", []string{"Entity", "ISO3", "Year"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasCodeColumn(tt.header, codes))
		})
	}
}
