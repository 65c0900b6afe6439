// Package objectstore implements object-store-to-object-store copy (C2):
// listing, single-object copy, prefix copy with bounded parallelism,
// Hive-style partition copy, and post-copy verification. Grounded on
// original_source/trino_migration/s3_copier.py's S3Copier, with
// ThreadPoolExecutor fan-out replaced by golang.org/x/sync/errgroup plus a
// semaphore.Weighted bound.
package objectstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"pgmigrate/internal/migrate"
)

// Object describes one listed object.
type Object struct {
	Key  string
	Size int64
}

// CopyResult summarizes one copy_prefix/copy_partitions call, grounded on
// s3_copier.py's CopyResult.
type CopyResult struct {
	Copied  int
	Skipped int
	Failed  int
	Bytes   int64
	Errors  []string
}

func (r *CopyResult) addError(msg string) {
	const maxErrors = 5
	if len(r.Errors) < maxErrors {
		r.Errors = append(r.Errors, msg)
	}
}

// Copier copies objects between a source and a target bucket, which may
// live behind the same or different S3-compatible endpoints.
type Copier struct {
	source *s3.Client
	target *s3.Client
	sem    *semaphore.Weighted
}

// NewCopier builds a Copier bounding concurrent per-object copies at
// maxParallel (§5's object-copies-per-prefix bound).
func NewCopier(source, target *s3.Client, maxParallel int) *Copier {
	if maxParallel <= 0 {
		maxParallel = 10
	}
	return &Copier{source: source, target: target, sem: semaphore.NewWeighted(int64(maxParallel))}
}

// List enumerates every object under prefix in bucket, paginating until
// exhausted.
func (c *Copier) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var out []Object
	var token *string
	for {
		resp, err := c.source.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &bucket,
			Prefix:            &prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range resp.Contents {
			size := int64(0)
			if obj.Size != nil {
				size = *obj.Size
			}
			out = append(out, Object{Key: *obj.Key, Size: size})
		}
		if resp.IsTruncated == nil || !*resp.IsTruncated {
			break
		}
		token = resp.NextContinuationToken
	}
	return out, nil
}

// CopyObject copies one object from sourceBucket/sourceKey to
// targetBucket/targetKey, grounded on s3_copier.py's copy_object: it reads
// the source's ContentType with HeadObject, then issues a server-side
// CopyObject through the target client carrying that ContentType over.
func (c *Copier) CopyObject(ctx context.Context, sourceBucket, sourceKey, targetBucket, targetKey string) error {
	head, err := c.source.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &sourceBucket, Key: &sourceKey})
	if err != nil {
		return fmt.Errorf("head s3://%s/%s: %w", sourceBucket, sourceKey, err)
	}

	_, err = c.target.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:      &targetBucket,
		Key:         &targetKey,
		CopySource:  awsCopySource(sourceBucket, sourceKey),
		ContentType: head.ContentType,
	})
	if err != nil {
		return fmt.Errorf("copy s3://%s/%s to s3://%s/%s: %w", sourceBucket, sourceKey, targetBucket, targetKey, err)
	}
	return nil
}

func awsCopySource(bucket, key string) *string {
	v := strings.TrimPrefix(bucket, "/") + "/" + strings.TrimLeft(key, "/")
	return &v
}

// CopyPrefix copies every object under sourcePrefix, translating keys by
// stripping sourcePrefix and prepending targetPrefix, grounded on
// s3_copier.py's copy_prefix.
func (c *Copier) CopyPrefix(ctx context.Context, sourceBucket, sourcePrefix, targetBucket, targetPrefix string) (*CopyResult, error) {
	objects, err := c.List(ctx, sourceBucket, sourcePrefix)
	if err != nil {
		return nil, err
	}

	result := &CopyResult{}
	g, gctx := errgroup.WithContext(ctx)

	for _, obj := range objects {
		obj := obj
		targetKey := translateKey(obj.Key, sourcePrefix, targetPrefix)

		if err := c.sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer c.sem.Release(1)
			if err := c.CopyObject(gctx, sourceBucket, obj.Key, targetBucket, targetKey); err != nil {
				result.Failed++
				result.addError(err.Error())
				log.Warn().Err(err).Str("key", obj.Key).Msg("object copy failed")
				return nil
			}
			result.Copied++
			result.Bytes += obj.Size
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	if result.Failed > 0 {
		return result, &migrate.TransientDataError{Err: fmt.Errorf("%d of %d objects failed to copy", result.Failed, len(objects))}
	}
	return result, nil
}

func translateKey(key, sourcePrefix, targetPrefix string) string {
	rel := strings.TrimPrefix(key, sourcePrefix)
	rel = strings.TrimPrefix(rel, "/")
	if targetPrefix == "" {
		return rel
	}
	return strings.TrimSuffix(targetPrefix, "/") + "/" + rel
}

// CopyPartitions copies each Hive-style partition directory (col=val
// path segments) independently, grounded on s3_copier.py's
// copy_partitions.
func (c *Copier) CopyPartitions(ctx context.Context, sourceBucket, basePrefix, targetBucket, targetBasePrefix string, partitions []map[string]string) (*CopyResult, error) {
	total := &CopyResult{}
	for _, partition := range partitions {
		suffix := partitionPath(partition)
		sourcePrefix := joinPath(basePrefix, suffix)
		targetPrefix := joinPath(targetBasePrefix, suffix)

		sub, err := c.CopyPrefix(ctx, sourceBucket, sourcePrefix, targetBucket, targetPrefix)
		if sub != nil {
			total.Copied += sub.Copied
			total.Skipped += sub.Skipped
			total.Failed += sub.Failed
			total.Bytes += sub.Bytes
			for _, e := range sub.Errors {
				total.addError(e)
			}
		}
		if err != nil {
			log.Warn().Err(err).Str("partition", suffix).Msg("partition copy failed")
		}
	}
	return total, nil
}

// partitionPath renders a Hive partition map deterministically as
// col1=val1/col2=val2/...
func partitionPath(partition map[string]string) string {
	cols := make([]string, 0, len(partition))
	for k := range partition {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprintf("%s=%s", col, partition[col])
	}
	return strings.Join(parts, "/")
}

func joinPath(base, suffix string) string {
	base = strings.TrimSuffix(base, "/")
	suffix = strings.TrimPrefix(suffix, "/")
	if suffix == "" {
		return base
	}
	return base + "/" + suffix
}

// VerifyStatus classifies the outcome of a Verify call.
type VerifyStatus string

const (
	VerifyOK       VerifyStatus = "OK"
	VerifyMismatch VerifyStatus = "MISMATCH"
	VerifyEmpty    VerifyStatus = "EMPTY"
)

// VerifyResult reports a post-copy comparison of source and target
// prefixes, keyed by object key relative to each prefix (§4.2's verify
// contract).
type VerifyResult struct {
	Status        VerifyStatus
	MissingKeys   []string
	ExtraKeys     []string
	MismatchSizes []string
}

// Verify lists both sides and computes the three relative-key sets: keys
// present in source but missing from target, keys present in target but
// not in source, and keys present on both sides with differing sizes.
// Grounded on the §4.7 verification step.
func (c *Copier) Verify(ctx context.Context, sourceBucket, sourcePrefix, targetBucket, targetPrefix string) (*VerifyResult, error) {
	sourceObjs, err := c.List(ctx, sourceBucket, sourcePrefix)
	if err != nil {
		return nil, err
	}
	targetObjs, err := c.listTarget(ctx, targetBucket, targetPrefix)
	if err != nil {
		return nil, err
	}

	source := make(map[string]int64, len(sourceObjs))
	for _, o := range sourceObjs {
		source[translateKey(o.Key, sourcePrefix, "")] = o.Size
	}
	target := make(map[string]int64, len(targetObjs))
	for _, o := range targetObjs {
		target[translateKey(o.Key, targetPrefix, "")] = o.Size
	}

	result := diffObjects(source, target)

	if result.Status == VerifyMismatch {
		return result, &migrate.VerificationError{Err: fmt.Errorf(
			"object mismatch: %d missing, %d extra, %d size mismatches",
			len(result.MissingKeys), len(result.ExtraKeys), len(result.MismatchSizes),
		)}
	}
	return result, nil
}

// diffObjects computes the three relative-key sets between a source and
// target object listing, keyed by relative key → size.
func diffObjects(source, target map[string]int64) *VerifyResult {
	result := &VerifyResult{Status: VerifyOK}
	for key, size := range source {
		targetSize, ok := target[key]
		if !ok {
			result.MissingKeys = append(result.MissingKeys, key)
			continue
		}
		if targetSize != size {
			result.MismatchSizes = append(result.MismatchSizes, key)
		}
	}
	for key := range target {
		if _, ok := source[key]; !ok {
			result.ExtraKeys = append(result.ExtraKeys, key)
		}
	}
	sort.Strings(result.MissingKeys)
	sort.Strings(result.ExtraKeys)
	sort.Strings(result.MismatchSizes)

	switch {
	case len(source) == 0 && len(target) == 0:
		result.Status = VerifyEmpty
	case len(result.MissingKeys) > 0 || len(result.ExtraKeys) > 0 || len(result.MismatchSizes) > 0:
		result.Status = VerifyMismatch
	}
	return result
}

func (c *Copier) listTarget(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var out []Object
	var token *string
	for {
		resp, err := c.target.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &bucket,
			Prefix:            &prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("listing target s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range resp.Contents {
			size := int64(0)
			if obj.Size != nil {
				size = *obj.Size
			}
			out = append(out, Object{Key: *obj.Key, Size: size})
		}
		if resp.IsTruncated == nil || !*resp.IsTruncated {
			break
		}
		token = resp.NextContinuationToken
	}
	return out, nil
}

// EnsureBucket creates targetBucket if it does not already exist,
// grounded on s3_copier.py's ensure_bucket_exists.
func (c *Copier) EnsureBucket(ctx context.Context, bucket, region string) error {
	_, err := c.target.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &bucket})
	if err == nil {
		return nil
	}

	input := &s3.CreateBucketInput{Bucket: &bucket}
	if region != "" && region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	if _, err := c.target.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("creating bucket %s: %w", bucket, err)
	}
	return nil
}

// DeletePrefix removes every object under prefix from the target bucket,
// batching deletes in groups of 1000 keys, grounded on s3_copier.py's
// delete_prefix.
func (c *Copier) DeletePrefix(ctx context.Context, bucket, prefix string) (int, error) {
	objects, err := c.listTarget(ctx, bucket, prefix)
	if err != nil {
		return 0, err
	}
	if len(objects) == 0 {
		return 0, nil
	}

	const batchSize = 1000
	deleted := 0
	for start := 0; start < len(objects); start += batchSize {
		end := start + batchSize
		if end > len(objects) {
			end = len(objects)
		}
		ids := make([]types.ObjectIdentifier, end-start)
		for i, obj := range objects[start:end] {
			key := obj.Key
			ids[i] = types.ObjectIdentifier{Key: &key}
		}
		_, err := c.target.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: &bucket,
			Delete: &types.Delete{Objects: ids},
		})
		if err != nil {
			return deleted, fmt.Errorf("deleting objects under %s: %w", prefix, err)
		}
		deleted += len(ids)
	}
	return deleted, nil
}
