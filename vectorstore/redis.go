package vectorstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/botirk38/agentcache/types"
)

const defaultRedisPrefix = "agentcache:"

// RedisIndex is an approximate index backed by a RediSearch HNSW vector
// field. Vectors are stored as hashes keyed by entry ID. Equal scores come
// back in an unspecified order.
type RedisIndex struct {
	client     *redis.Client
	prefix     string
	indexName  string
	dimensions int
	count      atomic.Int64
}

// redisOptions accepts a redis:// or rediss:// URL or a bare host:port.
// Credentials and database set on config override the URL.
func redisOptions(config types.IndexConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: config.ConnectionString}
	if strings.Contains(config.ConnectionString, "://") {
		var err error
		if opts, err = redis.ParseURL(config.ConnectionString); err != nil {
			return nil, fmt.Errorf("invalid Redis URL: %w", err)
		}
	}

	if config.Username != "" {
		opts.Username = config.Username
	}
	if config.Password != "" {
		opts.Password = config.Password
	}
	if config.Database != 0 {
		opts.DB = config.Database
	}
	// FT.SEARCH replies are only parsed into structured results over RESP2.
	opts.Protocol = 2
	return opts, nil
}

// NewRedisIndex connects to Redis and (re)creates the vector index. Any
// vectors left under the prefix by a previous process are dropped.
func NewRedisIndex(ctx context.Context, config types.IndexConfig) (*RedisIndex, error) {
	if config.Dimensions <= 0 {
		return nil, ErrInvalidDimension
	}

	opts, err := redisOptions(config)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := config.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	idx := &RedisIndex{
		client:     client,
		prefix:     prefix,
		indexName:  prefix + "idx",
		dimensions: config.Dimensions,
	}
	if err := idx.Reset(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return idx, nil
}

func (r *RedisIndex) keyPrefix() string {
	return r.prefix + "entry:"
}

func (r *RedisIndex) key(id types.EntryID) string {
	return r.keyPrefix() + strconv.Itoa(int(id))
}

// Add implements Index.
func (r *RedisIndex) Add(ctx context.Context, id types.EntryID, vec types.Embedding) error {
	if len(vec) != r.dimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), r.dimensions)
	}

	err := r.client.HSet(ctx, r.key(id),
		"id", int(id),
		"embedding", floatsToBytes(vec),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to store vector in Redis: %w", err)
	}

	r.count.Add(1)
	return nil
}

// Nearest implements Index using a KNN 1 query.
func (r *RedisIndex) Nearest(ctx context.Context, vec types.Embedding) (types.EntryID, float64, bool, error) {
	results, err := r.client.FTSearchWithArgs(ctx, r.indexName, "*=>[KNN 1 @embedding $vec AS vector_distance]", &redis.FTSearchOptions{
		Return: []redis.FTSearchReturn{
			{FieldName: "vector_distance"},
			{FieldName: "id"},
		},
		DialectVersion: 2,
		Params: map[string]any{
			"vec": floatsToBytes(vec),
		},
	}).Result()
	if err != nil {
		return 0, 0, false, fmt.Errorf("vector search error: %w", err)
	}

	for _, doc := range results.Docs {
		distanceStr, ok := doc.Fields["vector_distance"]
		if !ok {
			continue
		}
		distance, err := strconv.ParseFloat(distanceStr, 64)
		if err != nil {
			continue
		}
		id, err := strconv.Atoi(doc.Fields["id"])
		if err != nil {
			continue
		}

		// COSINE distance is 1 - cosine similarity.
		return types.EntryID(id), 1.0 - distance, true, nil
	}

	return 0, 0, false, nil
}

// Reset drops the index together with its hashes and creates it again.
func (r *RedisIndex) Reset(ctx context.Context) error {
	// The index does not exist on first use, so the drop error is ignored.
	r.client.FTDropIndexWithArgs(ctx, r.indexName, &redis.FTDropIndexOptions{DeleteDocs: true})

	_, err := r.client.FTCreate(ctx, r.indexName, &redis.FTCreateOptions{
		OnHash: true,
		Prefix: []any{r.keyPrefix()},
	},
		&redis.FieldSchema{
			FieldName: "id",
			FieldType: redis.SearchFieldTypeNumeric,
		},
		&redis.FieldSchema{
			FieldName: "embedding",
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				HNSWOptions: &redis.FTHNSWOptions{
					Type:           "FLOAT64",
					Dim:            r.dimensions,
					DistanceMetric: "COSINE",
				},
			},
		},
	).Result()
	if err != nil {
		return fmt.Errorf("failed to create Redis vector index: %w", err)
	}

	r.count.Store(0)
	return nil
}

// Len implements Index.
func (r *RedisIndex) Len() int {
	return int(r.count.Load())
}

// Close drops the index and closes the Redis connection.
func (r *RedisIndex) Close() error {
	r.client.FTDropIndexWithArgs(context.Background(), r.indexName, &redis.FTDropIndexOptions{DeleteDocs: true})
	return r.client.Close()
}

// floatsToBytes converts a float64 slice to bytes for Redis storage
func floatsToBytes(fs []float64) []byte {
	buf := make([]byte, len(fs)*8)
	for i, f := range fs {
		binary.LittleEndian.PutUint64(buf[i*8:(i+1)*8], math.Float64bits(f))
	}
	return buf
}
