package tablediff

import (
	"github.com/tabulario/tabletool/cmd/tabular"
)

// datasetIndex is a key → row lookup over one dataset, plus the keys in
// first-seen dataset order so output never depends on map iteration.
type datasetIndex struct {
	rows  map[string]tabular.Row
	order []string
}

// buildIndex walks the dataset once, computing each row's key.
//
// Duplicate keys are last-write-wins: the later row replaces the earlier
// one in the lookup while the key keeps its first-seen position. The
// classifier and comparator therefore only ever see one row per key;
// earlier duplicates silently drop out of the comparison.
func buildIndex(ds *tabular.Dataset, key keyFunc) (*datasetIndex, error) {
	idx := &datasetIndex{
		rows:  make(map[string]tabular.Row, len(ds.Rows)),
		order: make([]string, 0, len(ds.Rows)),
	}

	for i, row := range ds.Rows {
		k, err := key(row, i)
		if err != nil {
			return nil, err
		}
		if _, exists := idx.rows[k]; !exists {
			idx.order = append(idx.order, k)
		}
		idx.rows[k] = row
	}

	return idx, nil
}

func (idx *datasetIndex) has(key string) bool {
	_, ok := idx.rows[key]
	return ok
}
