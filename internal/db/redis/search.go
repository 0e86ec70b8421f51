package redis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/dravis-labs/corpusd/internal/db"
)

// SearchKNN runs a vector similarity query against an FT index.
// The returned entries are ordered by ascending vector distance and
// carry a similarity score in [0, 1].
func (s *Store) SearchKNN(ctx context.Context, q db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, &db.Error{Op: db.OpFTSearch, Err: fmt.Errorf("index name is required")}
	}
	if len(q.Vector) == 0 {
		return nil, &db.Error{Op: db.OpFTSearch, Err: fmt.Errorf("query vector is required")}
	}
	if q.K <= 0 {
		return nil, &db.Error{Op: db.OpFTSearch, Err: fmt.Errorf("k must be positive")}
	}

	query := fmt.Sprintf("(%s)=>[KNN %d @vector $BLOB AS __dist]", filterExpr(q.TagFilters), q.K)

	args := []string{query, "PARAMS", "2", "BLOB", string(db.VectorToBytes(q.Vector))}
	args = append(args, "SORTBY", "__dist", "ASC")
	args = append(args, returnArgs(q.ReturnFields, "__dist")...)
	args = append(args, "LIMIT", "0", strconv.Itoa(q.K), "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Keys(q.IndexName).Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index") || isRedisErr(err, "no such index") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpFTSearch, Err: err}
	}

	return parseKNNResult(raw)
}

// SearchList runs a filter-only query returning matching keys and fields,
// without vector scoring. Used for listing entries by tag.
func (s *Store) SearchList(ctx context.Context, indexName string, tagFilters map[string]string, returnFields []string, limit int) (*db.SearchResult, error) {
	if indexName == "" {
		return nil, &db.Error{Op: db.OpFTSearch, Err: fmt.Errorf("index name is required")}
	}
	if limit <= 0 {
		limit = 10000
	}

	args := []string{filterExpr(tagFilters)}
	args = append(args, returnArgs(returnFields, "")...)
	args = append(args, "LIMIT", "0", strconv.Itoa(limit), "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Keys(indexName).Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index") || isRedisErr(err, "no such index") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpFTSearch, Err: err}
	}

	return parseListResult(raw)
}

// SearchCount returns the number of entries matching the filters.
func (s *Store) SearchCount(ctx context.Context, indexName string, tagFilters map[string]string) (int, error) {
	args := []string{filterExpr(tagFilters), "LIMIT", "0", "0", "DIALECT", "2"}

	cmd := s.b().Arbitrary("FT.SEARCH").Keys(indexName).Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index") || isRedisErr(err, "no such index") {
			return 0, db.ErrIndexNotFound
		}
		return 0, &db.Error{Op: db.OpFTSearch, Err: err}
	}
	if len(raw) == 0 {
		return 0, &db.Error{Op: db.OpFTSearch, Err: fmt.Errorf("empty search reply")}
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpFTSearch, Err: fmt.Errorf("parse total: %w", err)}
	}
	return int(total), nil
}

// filterExpr builds the pre-filter expression. Filters are sorted by
// field name so queries are deterministic.
func filterExpr(tagFilters map[string]string) string {
	if len(tagFilters) == 0 {
		return "*"
	}

	names := make([]string, 0, len(tagFilters))
	for name := range tagFilters {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte('@')
		sb.WriteString(name)
		sb.WriteString(":{")
		sb.WriteString(escapeTag(tagFilters[name]))
		sb.WriteByte('}')
	}
	return sb.String()
}

func returnArgs(fields []string, extra string) []string {
	if extra != "" {
		fields = append(fields[:len(fields):len(fields)], extra)
	}
	if len(fields) == 0 {
		return nil
	}
	args := make([]string, 0, len(fields)+2)
	args = append(args, "RETURN", strconv.Itoa(len(fields)))
	return append(args, fields...)
}

// parseKNNResult parses the RESP2 FT.SEARCH reply:
// [total, key1, [f1, v1, ...], key2, [...], ...]
func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	total, entries, err := parseSearchReply(raw)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		dist, derr := strconv.ParseFloat(entries[i].Fields["__dist"], 64)
		if derr != nil {
			return nil, &db.Error{Op: db.OpFTSearch, Err: fmt.Errorf("parse distance for %s: %w", entries[i].Key, derr)}
		}
		// Cosine distance to similarity. Clamp: HNSW can report
		// distances slightly above 1 for near-orthogonal vectors.
		entries[i].Score = math.Max(0, 1.0-dist)
		delete(entries[i].Fields, "__dist")
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	total, entries, err := parseSearchReply(raw)
	if err != nil {
		return nil, err
	}
	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func parseSearchReply(raw []rueidis.RedisMessage) (int, []db.SearchEntry, error) {
	if len(raw) == 0 {
		return 0, nil, &db.Error{Op: db.OpFTSearch, Err: fmt.Errorf("empty search reply")}
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, nil, &db.Error{Op: db.OpFTSearch, Err: fmt.Errorf("parse total: %w", err)}
	}

	var entries []db.SearchEntry
	for i := 1; i < len(raw); i += 2 {
		key, kerr := raw[i].ToString()
		if kerr != nil {
			return 0, nil, &db.Error{Op: db.OpFTSearch, Err: fmt.Errorf("parse key at %d: %w", i, kerr)}
		}

		fields := map[string]string{}
		if i+1 < len(raw) {
			pairs, perr := raw[i+1].ToArray()
			if perr != nil {
				return 0, nil, &db.Error{Op: db.OpFTSearch, Err: fmt.Errorf("parse fields for %s: %w", key, perr)}
			}
			fields, perr = parseFieldPairs(pairs)
			if perr != nil {
				return 0, nil, &db.Error{Op: db.OpFTSearch, Err: fmt.Errorf("parse fields for %s: %w", key, perr)}
			}
		}

		entries = append(entries, db.SearchEntry{Key: key, Fields: fields})
	}

	return int(total), entries, nil
}

func parseFieldPairs(pairs []rueidis.RedisMessage) (map[string]string, error) {
	fields := make(map[string]string, len(pairs)/2)
	for j := 0; j+1 < len(pairs); j += 2 {
		name, err := pairs[j].ToString()
		if err != nil {
			return nil, err
		}
		value, err := pairs[j+1].ToString()
		if err != nil {
			return nil, err
		}
		fields[name] = value
	}
	return fields, nil
}

// tagEscaper escapes characters with special meaning in TAG queries.
var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>", "{", "\\{", "}", "\\}",
	"[", "\\[", "]", "\\]", "\"", "\\\"", "'", "\\'", ":", "\\:", ";", "\\;",
	"!", "\\!", "@", "\\@", "#", "\\#", "$", "\\$", "%", "\\%", "^", "\\^",
	"&", "\\&", "*", "\\*", "(", "\\(", ")", "\\)", "-", "\\-", "+", "\\+",
	"=", "\\=", "~", "\\~", "|", "\\|", "/", "\\/", " ", "\\ ",
)

func escapeTag(v string) string {
	return tagEscaper.Replace(v)
}
