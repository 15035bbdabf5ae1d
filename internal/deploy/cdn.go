package deploy

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cfronttypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/google/uuid"
	"github.com/nathanielng/kiro-telegram-bot/internal/errdefs"
	"github.com/nathanielng/kiro-telegram-bot/internal/logging"
)

// InvalidateCache asks CloudFront to drop cached copies of the given paths
// (all content when none are given) and returns the invalidation ID.
func (d *Deployer) InvalidateCache(ctx context.Context, distributionID string, paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = []string{"/*"}
	}
	callerRef := "kiroctl-" + uuid.NewString()

	out, err := d.cdn.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(distributionID),
		InvalidationBatch: &cfronttypes.InvalidationBatch{
			CallerReference: aws.String(callerRef),
			Paths: &cfronttypes.Paths{
				Quantity: aws.Int32(int32(len(paths))),
				Items:    paths,
			},
		},
	})
	if err != nil {
		return "", errdefs.ClassifyAWS("create invalidation", err)
	}

	id := aws.ToString(out.Invalidation.Id)
	logging.Info("cache invalidation submitted", "distribution", distributionID, "invalidation", id)
	return id, nil
}
