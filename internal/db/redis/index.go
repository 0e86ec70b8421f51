package redis

import (
	"context"
	"strconv"

	"github.com/dravis-labs/corpusd/internal/db"
)

// CreateIndex creates an FT index. Returns db.ErrIndexExists if an
// index with the same name already exists.
func (s *Store) CreateIndex(ctx context.Context, idx db.IndexDefinition) error {
	if err := idx.Validate(); err != nil {
		return &db.Error{Op: db.OpFTCreate, Err: err}
	}

	args := buildCreateArgs(idx)
	cmd := s.b().Arbitrary(args[0]).Keys(args[1]).Args(args[2:]...).Build()

	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpFTCreate, Err: err}
	}
	return nil
}

// DropIndex drops an FT index, keeping the indexed hashes.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Keys(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index") || isRedisErr(err, "no such index") {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpFTDropIndex, Err: err}
	}
	return nil
}

// IndexExists checks whether an FT index exists via FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Keys(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index") || isRedisErr(err, "no such index") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpFTInfo, Err: err}
	}
	return true, nil
}

// buildCreateArgs assembles the FT.CREATE command arguments.
func buildCreateArgs(idx db.IndexDefinition) []string {
	args := []string{"FT.CREATE", idx.Name, "ON", "HASH"}

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}

	args = append(args, "SCHEMA")
	for _, f := range idx.Fields {
		args = append(args, fieldArgs(f)...)
	}

	return args
}

func fieldArgs(f db.IndexField) []string {
	var args []string
	switch f.Type {
	case db.IndexFieldNumeric:
		args = []string{f.Name, "NUMERIC"}
	case db.IndexFieldTag:
		args = []string{f.Name, "TAG"}
	case db.IndexFieldVector:
		args = vectorFieldArgs(f)
	default:
		return nil
	}
	if f.Alias != "" {
		args = append(args[:1:1], append([]string{"AS", f.Alias}, args[1:]...)...)
	}
	return args
}

func vectorFieldArgs(f db.IndexField) []string {
	algo := f.VectorAlgo
	if algo == "" {
		algo = db.VectorHNSW
	}
	metric := f.VectorDistance
	if metric == "" {
		metric = db.DistanceCosine
	}

	params := [][2]string{
		{"TYPE", "FLOAT32"},
		{"DIM", strconv.Itoa(f.VectorDim)},
		{"DISTANCE_METRIC", string(metric)},
	}
	if algo == db.VectorHNSW {
		if f.VectorM > 0 {
			params = append(params, [2]string{"M", strconv.Itoa(f.VectorM)})
		}
		if f.VectorEFConstruct > 0 {
			params = append(params, [2]string{"EF_CONSTRUCTION", strconv.Itoa(f.VectorEFConstruct)})
		}
	}

	args := []string{f.Name, "VECTOR", string(algo), strconv.Itoa(len(params) * 2)}
	for _, p := range params {
		args = append(args, p[0], p[1])
	}
	return args
}
