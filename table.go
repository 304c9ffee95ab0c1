package vecview

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

const (
	ColumnID             = "id"
	ColumnDocument       = "document"
	ColumnEmbedding      = "embedding"
	ColumnDistance       = "distance"
	ColumnMetadataPrefix = "metadata."
)

type TableOptions struct {
	// EmbeddingPreview is the number of leading components shown per
	// embedding; zero expands the whole vector.
	EmbeddingPreview int `yaml:"embeddingPreview" json:"embedding_preview"`
}

type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ToTable flattens a result set into one row per record. Metadata keys
// become columns in the order they are first seen, visiting each record's
// keys in ascending order. A distance column is present only for
// similarity results.
func ToTable(rs *ResultSet, opts TableOptions) Table {
	var (
		keys []string
		seen = make(map[string]struct{})
	)

	for _, r := range rs.Records {
		for _, k := range slices.Sorted(maps.Keys(r.Metadata)) {
			if _, ok := seen[k]; ok {
				continue
			}

			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	similarity := rs.Kind == ResultKindSimilarity

	columns := make([]string, 0, len(keys)+4)
	columns = append(columns, ColumnID, ColumnDocument)
	for _, k := range keys {
		columns = append(columns, ColumnMetadataPrefix+k)
	}
	columns = append(columns, ColumnEmbedding)
	if similarity {
		columns = append(columns, ColumnDistance)
	}

	rows := make([][]string, len(rs.Records))
	for i, r := range rs.Records {
		row := make([]string, 0, len(columns))
		row = append(row, r.ID, r.Document)

		for _, k := range keys {
			row = append(row, r.Metadata[k])
		}

		row = append(row, FormatEmbedding(r.Embedding, opts.EmbeddingPreview))

		if similarity {
			var distance string
			if i < len(rs.Distances) {
				distance = strconv.FormatFloat(rs.Distances[i], 'f', 6, 64)
			}

			row = append(row, distance)
		}

		rows[i] = row
	}

	return Table{
		Columns: columns,
		Rows:    rows,
	}
}

// FormatEmbedding renders a vector as "[x, y, ...]". With preview > 0 and a
// longer vector, only the first preview components are shown, followed by
// the dimension.
func FormatEmbedding(embedding []float32, preview int) string {
	if len(embedding) == 0 {
		return ""
	}

	shown := embedding
	truncated := preview > 0 && len(embedding) > preview
	if truncated {
		shown = embedding[:preview]
	}

	parts := make([]string, len(shown))
	for i, x := range shown {
		parts[i] = strconv.FormatFloat(float64(x), 'g', 6, 32)
	}

	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(strings.Join(parts, ", "))

	if truncated {
		sb.WriteString(", … (dim=")
		sb.WriteString(strconv.Itoa(len(embedding)))
		sb.WriteByte(')')
	}

	sb.WriteByte(']')
	return sb.String()
}
