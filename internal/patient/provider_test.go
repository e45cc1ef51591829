package patient

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileProviderRoundTripsSample(t *testing.T) {
	data, err := EncodeDataset(Sample())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "patients.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	got, err := FileProvider{Path: path}.Load(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(Sample(), got); diff != "" {
		t.Fatalf("dataset mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeDataset(t *testing.T) {
	data := []byte(`
patients:
  - id: 7
    first_name: Ada
    last_name: Lovelace
    birthday: 1815-12-10
    wbcc: 5100
  - id: 3
    first_name: Alan
    last_name: Turing
    birthday: 6/23/1912
    wbcc: 4800
`)
	got, err := DecodeDataset(data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 7, got[0].ID)
	assert.Equal(t, "1912-06-23", FormatDate(got[1].Birthday))
	assert.Equal(t, 4800, got[1].WhiteBloodCellCount)
}

func TestDecodeDatasetErrors(t *testing.T) {
	_, err := DecodeDataset([]byte("patients:\n  - id: 1\n    birthday: 2000-01-01\n  - id: 1\n    birthday: 2000-01-01\n"))
	assert.ErrorContains(t, err, "duplicate id 1")

	_, err = DecodeDataset([]byte("patients:\n  - id: 1\n    birthday: someday\n"))
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = DecodeDataset([]byte("patients: [\n"))
	assert.ErrorContains(t, err, "failed to parse dataset")
}

func TestFileProviderMissingFile(t *testing.T) {
	_, err := FileProvider{Path: filepath.Join(t.TempDir(), "absent.yaml")}.Load(context.Background())
	assert.ErrorContains(t, err, "failed to read dataset")
}
