package core

import (
	"context"
	"errors"

	"protospace/internal/models"
)

const defaultBlobGCBatchSize = 500

var errNoBlobStore = errors.New("blob store is not configured")

// BlobGCResult reports one GC run result.
type BlobGCResult struct {
	CandidateCount int   `json:"candidate_count"`
	DeletedCount   int   `json:"deleted_count"`
	FailedCount    int   `json:"failed_count"`
	ReclaimedBytes int64 `json:"reclaimed_bytes"`
	DryRun         bool  `json:"dry_run"`
}

// GCBlobs sweeps blobs no prototype references, such as images replaced by an
// update or left behind by a failed commit. Without apply it only reports.
func (s *Service) GCBlobs(ctx context.Context, batchSize int, apply bool) (BlobGCResult, error) {
	if s.blobs == nil {
		return BlobGCResult{DryRun: !apply}, errNoBlobStore
	}
	if !apply {
		return s.surveyOrphans(ctx)
	}
	if batchSize <= 0 {
		batchSize = defaultBlobGCBatchSize
	}
	return s.sweepOrphans(ctx, batchSize)
}

func (s *Service) surveyOrphans(ctx context.Context) (BlobGCResult, error) {
	result := BlobGCResult{DryRun: true}
	orphans, err := s.store.ListUnreferencedBlobs(ctx, 0)
	if err != nil {
		return result, err
	}
	for _, blob := range orphans {
		result.CandidateCount++
		result.ReclaimedBytes += blob.SizeBytes
	}
	return result, nil
}

// sweepOrphans deletes in batches until a pass yields nothing new. Blobs that
// failed once are skipped on later passes so a stuck object cannot loop.
func (s *Service) sweepOrphans(ctx context.Context, batchSize int) (BlobGCResult, error) {
	var result BlobGCResult
	skip := make(map[string]bool)
	for {
		orphans, err := s.store.ListUnreferencedBlobs(ctx, batchSize+len(skip))
		if err != nil {
			return result, err
		}
		fresh := 0
		for _, blob := range orphans {
			if skip[blob.ID] {
				continue
			}
			fresh++
			result.CandidateCount++
			reclaimed, err := s.store.ReclaimBlob(ctx, blob.ID, s.removeObject)
			switch {
			case err != nil:
				s.logger.Warn("blob reclaim failed", "blob_id", blob.ID, "err", err)
				skip[blob.ID] = true
				result.FailedCount++
			case !reclaimed:
				// Bound by a commit since it was listed.
				skip[blob.ID] = true
			default:
				result.DeletedCount++
				result.ReclaimedBytes += blob.SizeBytes
			}
		}
		if fresh == 0 {
			return result, nil
		}
	}
}

func (s *Service) removeObject(ctx context.Context, blob models.Blob) error {
	return s.blobs.Delete(ctx, blob.BlobKey)
}
