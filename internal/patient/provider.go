package patient

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider supplies the records a store starts from.
type Provider interface {
	Load(ctx context.Context) ([]Patient, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) ([]Patient, error)

// Load calls f.
func (f ProviderFunc) Load(ctx context.Context) ([]Patient, error) { return f(ctx) }

// SampleProvider returns the built-in sample patients.
type SampleProvider struct{}

// Load returns a fresh copy of Sample.
func (SampleProvider) Load(ctx context.Context) ([]Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Sample(), nil
}

// Sample returns the 13 sample patients, ids 1..13 in order.
func Sample() []Patient {
	return []Patient{
		{1, "John", "Simone", Date(1989, time.January, 7), 4500},
		{2, "Sarah", "Marley", Date(1970, time.February, 5), 6700},
		{3, "Jessica", "Arnold", Date(1980, time.March, 9), 3400},
		{4, "Sam", "Beasley", Date(1981, time.April, 17), 8800},
		{5, "Dan", "Forney", Date(1985, time.September, 13), 5400},
		{6, "Lauren", "Michaels", Date(1975, time.August, 21), 5000},
		{7, "Michael", "Erlich", Date(1985, time.December, 17), 4100},
		{8, "Jason", "Miles", Date(1991, time.November, 1), 3900},
		{9, "Rebekah", "Earley", Date(1985, time.February, 18), 4600},
		{10, "James", "Larson", Date(1974, time.April, 10), 5100},
		{11, "Dan", "Ulrech", Date(1991, time.July, 11), 6000},
		{12, "Heather", "Eisner", Date(1994, time.March, 6), 6000},
		{13, "Jasper", "Martin", Date(1971, time.July, 1), 6000},
	}
}

// FileProvider reads patients from a YAML dataset:
//
//	patients:
//	  - id: 1
//	    first_name: John
//	    last_name: Simone
//	    birthday: 1989-01-07
//	    wbcc: 4500
type FileProvider struct {
	Path string
}

type datasetFile struct {
	Patients []datasetRecord `yaml:"patients"`
}

type datasetRecord struct {
	ID        int    `yaml:"id"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Birthday  string `yaml:"birthday"`
	WBCC      int    `yaml:"wbcc"`
}

// Load reads and decodes the file on every call.
func (fp FileProvider) Load(ctx context.Context) ([]Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fp.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return DecodeDataset(data)
}

// DecodeDataset parses YAML dataset bytes. Ids must be unique.
func DecodeDataset(data []byte) ([]Patient, error) {
	var df datasetFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}

	seen := make(map[int]bool, len(df.Patients))
	out := make([]Patient, 0, len(df.Patients))
	for i, r := range df.Patients {
		if seen[r.ID] {
			return nil, fmt.Errorf("dataset entry %d: duplicate id %d", i, r.ID)
		}
		seen[r.ID] = true

		birthday, err := ParseDate(r.Birthday)
		if err != nil {
			return nil, fmt.Errorf("dataset entry %d: %w", i, err)
		}
		out = append(out, Patient{
			ID:                  r.ID,
			FirstName:           r.FirstName,
			LastName:            r.LastName,
			Birthday:            birthday,
			WhiteBloodCellCount: r.WBCC,
		})
	}
	return out, nil
}

// EncodeDataset renders patients in the FileProvider format.
func EncodeDataset(patients []Patient) ([]byte, error) {
	df := datasetFile{Patients: make([]datasetRecord, 0, len(patients))}
	for _, p := range patients {
		df.Patients = append(df.Patients, datasetRecord{
			ID:        p.ID,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Birthday:  FormatDate(p.Birthday),
			WBCC:      p.WhiteBloodCellCount,
		})
	}
	return yaml.Marshal(df)
}
