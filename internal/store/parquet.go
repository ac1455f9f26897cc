package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"optionsradar/internal/domain"
)

// Archive keeps a columnar history of uploaded record batches, one Parquet
// file per merge, grouped by upload day. The live dataset stays in the slot
// store; the archive exists so past uploads can be inspected after the
// dataset has been replaced.
type Archive struct {
	DataDir string
}

// NewArchive creates an Archive rooted at dataDir.
func NewArchive(dataDir string) *Archive {
	return &Archive{DataDir: dataDir}
}

// archiveRecord is the on-disk Parquet schema. Extra columns are flattened
// to "k=v" pairs so arbitrary source columns survive archival.
type archiveRecord struct {
	Symbol     string   `parquet:"symbol"`
	Date       string   `parquet:"date"`
	Last       float64  `parquet:"last"`
	Change     float64  `parquet:"change"`
	PCVol      float64  `parquet:"pc_vol"`
	OptionsVol int64    `parquet:"options_vol"`
	IVRank     float64  `parquet:"iv_rank"`
	Extra      []string `parquet:"extra,list"`
}

// WriteBatch archives one uploaded batch under the given upload time.
// Layout: <DataDir>/uploads/<YYYY-MM-DD>/<unix-nano>.parquet
func (a *Archive) WriteBatch(records []domain.Record, uploadedAt time.Time) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]archiveRecord, len(records))
	for i, r := range records {
		rows[i] = archiveRecord{
			Symbol:     r.Symbol,
			Date:       r.Date,
			Last:       r.Last,
			Change:     r.Change,
			PCVol:      r.PCVol,
			OptionsVol: r.OptionsVol,
			IVRank:     r.IVRank,
			Extra:      flattenExtra(r),
		}
	}

	path := a.batchPath(uploadedAt)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("archiving batch: %w", err)
	}
	return nil
}

// ReadDay reads back every batch archived on the given day (YYYY-MM-DD),
// in file order.
func (a *Archive) ReadDay(day string) ([]domain.Record, error) {
	dir := filepath.Join(a.DataDir, "uploads", day)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".parquet") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []domain.Record
	for _, name := range names {
		rows, err := parquet.ReadFile[archiveRecord](filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading archive %s: %w", name, err)
		}
		for _, r := range rows {
			out = append(out, domain.Record{
				Symbol:     r.Symbol,
				Date:       r.Date,
				Last:       r.Last,
				Change:     r.Change,
				PCVol:      r.PCVol,
				OptionsVol: r.OptionsVol,
				IVRank:     r.IVRank,
				Extra:      unflattenExtra(r.Extra),
			})
		}
	}
	return out, nil
}

// Days lists the archive's upload days, ascending.
func (a *Archive) Days() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(a.DataDir, "uploads"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var days []string
	for _, e := range entries {
		if e.IsDir() {
			days = append(days, e.Name())
		}
	}
	sort.Strings(days)
	return days, nil
}

func (a *Archive) batchPath(uploadedAt time.Time) string {
	day := uploadedAt.UTC().Format("2006-01-02")
	name := fmt.Sprintf("%d.parquet", uploadedAt.UnixNano())
	return filepath.Join(a.DataDir, "uploads", day, name)
}

func flattenExtra(r domain.Record) []string {
	cols := r.ExtraColumns()
	if len(cols) == 0 {
		return nil
	}
	out := make([]string, len(cols))
	for i, k := range cols {
		out[i] = k + "=" + r.Extra[k]
	}
	return out
}

func unflattenExtra(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, _ := strings.Cut(p, "=")
		m[k] = v
	}
	return m
}
