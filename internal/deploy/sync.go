package deploy

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/nathanielng/kiro-telegram-bot/internal/errdefs"
	"github.com/nathanielng/kiro-telegram-bot/internal/logging"
)

// defaultExcludes are glob patterns (relative to the content root) that are
// never uploaded. Hidden files and directories are skipped unconditionally.
var defaultExcludes = []string{
	"**/*.tmp",
	"**/*.part",
	"**/*.swp",
	"**/*.pyc",
	"**/__pycache__/**",
	"**/node_modules/**",
	"**/*.backup",
}

// deleteBatchSize is the S3 DeleteObjects limit per request.
const deleteBatchSize = 1000

// SyncResult summarizes what a content sync changed.
type SyncResult struct {
	Uploaded int
	Deleted  int
	Skipped  int
}

// Changed reports whether the sync mutated the bucket.
func (r *SyncResult) Changed() bool {
	return r.Uploaded > 0 || r.Deleted > 0
}

type remoteObject struct {
	etag string
	size int64
}

// SyncContent mirrors the files under root to s3://bucket/prefix: new and
// changed files are uploaded, remote objects with no local counterpart are
// deleted. Unchanged files (same size and content MD5) are skipped. The
// exclude patterns extend defaultExcludes.
func (d *Deployer) SyncContent(ctx context.Context, root, bucket, prefix string, exclude []string) (*SyncResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("content root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content root %s is not a directory", root)
	}

	patterns := make([]string, 0, len(defaultExcludes)+len(exclude))
	patterns = append(patterns, defaultExcludes...)
	for _, pat := range exclude {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("invalid exclusion pattern %q", pat)
		}
		patterns = append(patterns, pat)
	}

	remote, err := d.listRemote(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}

	res := &SyncResult{}
	seen := make(map[string]bool)

	err = filepath.WalkDir(root, func(p string, de fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if de.IsDir() {
			if rel != "." && strings.HasPrefix(de.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(de.Name(), ".") || excluded(rel, patterns) {
			return nil
		}

		key := rel
		if prefix != "" {
			key = prefix + "/" + rel
		}
		seen[key] = true

		fi, err := de.Info()
		if err != nil {
			return err
		}
		if ro, ok := remote[key]; ok && ro.size == fi.Size() {
			same, err := contentMatches(p, ro.etag)
			if err != nil {
				return err
			}
			if same {
				res.Skipped++
				return nil
			}
		}

		if err := d.upload(ctx, bucket, key, p); err != nil {
			return err
		}
		res.Uploaded++
		return nil
	})
	if err != nil {
		if errdefs.ClassOf(err) != errdefs.ClassUnclassified {
			return nil, err
		}
		return nil, fmt.Errorf("failed to sync %s: %w", root, err)
	}

	deleted, err := d.deleteStale(ctx, bucket, remote, seen)
	if err != nil {
		return nil, err
	}
	res.Deleted = deleted

	logging.Info("sync complete", "uploaded", res.Uploaded, "deleted", res.Deleted, "skipped", res.Skipped)
	return res, nil
}

// listRemote inventories the bucket under prefix, keyed by object key.
func (d *Deployer) listRemote(ctx context.Context, bucket, prefix string) (map[string]remoteObject, error) {
	remote := make(map[string]remoteObject)
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix + "/")
	}
	for {
		out, err := d.objects.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, errdefs.ClassifyAWS("list objects", err)
		}
		for _, obj := range out.Contents {
			remote[aws.ToString(obj.Key)] = remoteObject{
				etag: strings.Trim(aws.ToString(obj.ETag), `"`),
				size: aws.ToInt64(obj.Size),
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			return remote, nil
		}
		input.ContinuationToken = out.NextContinuationToken
	}
}

func (d *Deployer) upload(ctx context.Context, bucket, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = d.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errdefs.ClassifyAWS(fmt.Sprintf("upload %s", key), err)
	}
	logging.Debug("uploaded", "key", key, "content_type", contentType)
	return nil
}

// deleteStale removes remote objects that no local file produced, in batches
// of deleteBatchSize.
func (d *Deployer) deleteStale(ctx context.Context, bucket string, remote map[string]remoteObject, seen map[string]bool) (int, error) {
	var stale []string
	for key := range remote {
		if !seen[key] {
			stale = append(stale, key)
		}
	}
	sort.Strings(stale)

	for start := 0; start < len(stale); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(stale))
		batch := make([]s3types.ObjectIdentifier, 0, end-start)
		for _, key := range stale[start:end] {
			batch = append(batch, s3types.ObjectIdentifier{Key: aws.String(key)})
		}
		_, err := d.objects.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &s3types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return 0, errdefs.ClassifyAWS("delete stale objects", err)
		}
	}
	for _, key := range stale {
		logging.Debug("deleted", "key", key)
	}
	return len(stale), nil
}

func excluded(rel string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// contentMatches compares a local file's MD5 against the remote ETag. Sizes
// are already known to match; multipart ETags cannot be recomputed locally,
// so they count as a match on size alone.
func contentMatches(path, etag string) (bool, error) {
	if etag == "" {
		return false, nil
	}
	if strings.Contains(etag, "-") {
		return true, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}
	return hex.EncodeToString(h.Sum(nil)) == etag, nil
}
