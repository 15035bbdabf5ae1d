package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/nathanielng/kiro-telegram-bot/internal/errdefs"
	"github.com/nathanielng/kiro-telegram-bot/internal/logging"
)

// BucketSpec names the bucket the deploy path needs and the region it should
// be created in when absent.
type BucketSpec struct {
	Name   string
	Region string
}

// EnsureBucket makes sure the bucket exists, creating it after confirmation
// when it does not. An existing bucket is left untouched. Returns whether a
// bucket was created. Declining the confirmation yields errdefs.ErrAborted.
func (d *Deployer) EnsureBucket(ctx context.Context, spec BucketSpec) (bool, error) {
	_, err := d.buckets.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(spec.Name),
	})
	if err == nil {
		logging.Debug("bucket exists", "bucket", spec.Name)
		return false, nil
	}

	switch {
	case isBucketNotFound(err):
		// Absent: create below.
	case isForbidden(err):
		// A 403 on HeadBucket means the name exists under another account.
		return false, errdefs.New(errdefs.ClassNameAlreadyTaken, "check bucket",
			fmt.Errorf("s3://%s exists but is not owned by this account: %w", spec.Name, err)).
			WithHint(errdefs.HintFor(errdefs.ClassNameAlreadyTaken))
	default:
		// Existence is unknown; do not attempt creation.
		return false, errdefs.ClassifyAWS("check bucket", err)
	}

	prompt := fmt.Sprintf("Bucket s3://%s does not exist. Create it in %s? (y/n): ", spec.Name, spec.Region)
	if !d.Confirm(prompt) {
		return false, errdefs.ErrAborted
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(spec.Name)}
	// us-east-1 is the S3 default and must not be sent as a constraint.
	if spec.Region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(spec.Region),
		}
	}

	if _, err := d.buckets.CreateBucket(ctx, input); err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) && ae.ErrorCode() == "BucketAlreadyOwnedByYou" {
			// Raced with a previous run; the bucket is ours.
			logging.Debug("bucket already owned", "bucket", spec.Name)
			return false, nil
		}
		return false, errdefs.ClassifyAWS("create bucket", err)
	}

	logging.Info("bucket created", "bucket", spec.Name, "region", spec.Region)
	return true, nil
}

func isBucketNotFound(err error) bool {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NotFound", "NoSuchBucket":
			return true
		}
	}
	// HeadBucket failures sometimes surface as bare response errors.
	return strings.Contains(err.Error(), "StatusCode: 404")
}

func isForbidden(err error) bool {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "Forbidden", "AccessDenied":
			return true
		}
	}
	return strings.Contains(err.Error(), "StatusCode: 403")
}
