package bucketing

import (
	"hash"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"risk-service/internal/config"
)

// BucketingManager derives stable partition buckets for Scylla keys. Subjects
// are spread over a fixed number of buckets so no single partition grows
// unbounded; unresolved events are spread the same way.
type BucketingManager struct {
	subjectBuckets int
	eventBuckets   int
	hasherPool     sync.Pool
}

func NewBucketingManager(cfg *config.Config) *BucketingManager {
	bm := &BucketingManager{
		subjectBuckets: cfg.Bucketing.SubjectBuckets,
		eventBuckets:   cfg.Bucketing.EventBuckets,
	}

	// Pool of hash functions to avoid allocation overhead on the hot path
	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return bm
}

// GetSubjectBucket returns a consistent bucket for a subject id
// (0 to subjectBuckets-1).
func (bm *BucketingManager) GetSubjectBucket(subjectID string) int {
	return bm.getBucket(subjectID, bm.subjectBuckets)
}

// GetEventBucket returns a consistent bucket for the unresolved-events
// partition.
func (bm *BucketingManager) GetEventBucket(identifier string) int {
	return bm.getBucket(identifier, bm.eventBuckets)
}

// EventBuckets reports the configured bucket count so readers can fan out
// over every unresolved-events partition.
func (bm *BucketingManager) EventBuckets() int {
	return bm.eventBuckets
}

// GetDateBucket returns the UTC date bucket for daily rollups.
func (bm *BucketingManager) GetDateBucket() string {
	return time.Now().UTC().Format("2006-01-02")
}

func (bm *BucketingManager) getBucket(key string, buckets int) int {
	if buckets <= 0 {
		return 0
	}
	return int(bm.getHash(key) % uint64(buckets))
}

func (bm *BucketingManager) getHash(key string) uint64 {
	hasher := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return hasher.Sum64()
}
