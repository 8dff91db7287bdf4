package blockcache

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/org-press/org-press-sub001/internal/block"
	"github.com/org-press/org-press-sub001/internal/logfields"
	"github.com/org-press/org-press-sub001/internal/storage"
)

// ResultRecord is one cached execution result, keyed by
// (document, blockIndex).
type ResultRecord struct {
	Result       block.ExecutionResult `msgpack:"result"`
	Timestamp    time.Time             `msgpack:"timestamp"`
	DocumentPath string                `msgpack:"document_path"`
	BlockIndex   int                   `msgpack:"block_index"`
}

// WriteResult caches one execution result. Write failures surface.
func (c *Cache) WriteResult(ctx context.Context, docPath string, blockIndex int, res block.ExecutionResult) error {
	rec := ResultRecord{
		Result:       res,
		Timestamp:    time.Now().UTC(),
		DocumentPath: docPath,
		BlockIndex:   blockIndex,
	}
	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encode result record for %s[%d]: %w", docPath, blockIndex, err)
	}
	key := resultKey(docPath, blockIndex)
	if err := c.store.Write(ctx, key, data); err != nil {
		return fmt.Errorf("cache result for %s[%d]: %w", docPath, blockIndex, err)
	}
	return nil
}

// ReadResult returns a cached execution result, or false when absent. A
// corrupt record is a miss, never a failure.
func (c *Cache) ReadResult(ctx context.Context, docPath string, blockIndex int) (ResultRecord, bool) {
	key := resultKey(docPath, blockIndex)
	data, err := c.store.Read(ctx, key)
	if err != nil {
		if !storage.IsNotFound(err) {
			c.logger.Warn("result cache read failed, treating as miss", logfields.CachePath(key), logfields.Error(err))
		}
		return ResultRecord{}, false
	}
	var rec ResultRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		c.logger.Warn("corrupt result record, treating as miss", logfields.CachePath(key), logfields.Error(err))
		return ResultRecord{}, false
	}
	return rec, true
}
