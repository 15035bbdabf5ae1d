package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nathanielng/kiro-telegram-bot/internal/config"
	"github.com/nathanielng/kiro-telegram-bot/internal/deploy"
	"github.com/nathanielng/kiro-telegram-bot/internal/errdefs"
)

var (
	deployAutoApprove  bool
	deploySkipSync     bool
	deployNoInvalidate bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Provision the bucket and CDN, then publish content",
	Long: `Deploy converges the S3 bucket and the CloudFront stack, mirrors the
output directory into the bucket, and records the stack outputs in the
env file. Re-running deploy against converged infrastructure makes no
changes.

Settings come from the environment or the env file: S3_BUCKET_NAME
(required), AWS_REGION (default us-west-2), STACK_NAME (default
kiro-bot-cdn), KIRO_OUTPUT_DIR (default kiro-output), S3_PREFIX,
CACHE_TTL_SECONDS (default 86400), SYNC_EXCLUDE.`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().BoolVar(&deployAutoApprove, "auto-approve", false, "Skip interactive approval before creating resources")
	deployCmd.Flags().BoolVar(&deploySkipSync, "skip-sync", false, "Leave the bucket content untouched")
	deployCmd.Flags().BoolVar(&deployNoInvalidate, "no-invalidate", false, "Skip the CloudFront cache invalidation")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fmt.Print("Loading configuration... ")
	cfg, err := loadConfig()
	if err != nil {
		fmt.Println("FAILED")
		return err
	}
	if err := cfg.Require(config.KeyBucketName); err != nil {
		fmt.Println("FAILED")
		return err
	}
	fmt.Println("OK")

	clients, err := deploy.NewClients(ctx, cfg.Region)
	if err != nil {
		return err
	}
	d := deploy.New(clients)
	if !deployAutoApprove {
		d.Confirm = promptYesNo
	}

	fmt.Print("Checking bucket... ")
	created, err := d.EnsureBucket(ctx, deploy.BucketSpec{Name: cfg.BucketName, Region: cfg.Region})
	if errors.Is(err, errdefs.ErrAborted) {
		fmt.Println("SKIPPED")
		fmt.Println("Deploy cancelled.")
		return nil
	}
	if err != nil {
		fmt.Println("FAILED")
		return err
	}
	if created {
		fmt.Println("CREATED")
	} else {
		fmt.Println("OK")
	}

	synced := &deploy.SyncResult{}
	if !deploySkipSync {
		fmt.Print("Syncing content... ")
		synced, err = d.SyncContent(ctx, cfg.OutputDir, cfg.BucketName, cfg.Prefix, cfg.SyncExclude)
		if err != nil {
			fmt.Println("FAILED")
			return err
		}
		fmt.Printf("%d uploaded, %d deleted, %d unchanged\n", synced.Uploaded, synced.Deleted, synced.Skipped)
	}

	fmt.Print("Converging stack... ")
	outputs, stackChanged, err := d.Converge(ctx, cfg.StackName, map[string]string{
		"BucketName":      cfg.BucketName,
		"CacheTTLSeconds": strconv.Itoa(cfg.CacheTTL),
	})
	if err != nil {
		fmt.Println("FAILED")
		return err
	}
	if stackChanged {
		fmt.Println("OK")
	} else {
		fmt.Println("unchanged")
	}

	extracted, err := deploy.ExtractOutputs(outputs, deploy.OutputDistributionID, deploy.OutputDistributionDomain)
	if err != nil {
		return err
	}
	distributionID := extracted[deploy.OutputDistributionID]
	baseURL := "https://" + extracted[deploy.OutputDistributionDomain]

	fmt.Print("Updating env file... ")
	changed, err := deploy.PersistOutputs(cfg.EnvPath, map[string]string{
		"CLOUDFRONT_DISTRIBUTION_ID": distributionID,
		"CLOUDFRONT_BASE_URL":        baseURL,
		"AWS_REGION":                 cfg.Region,
		"STACK_NAME":                 cfg.StackName,
	})
	if err != nil {
		fmt.Println("FAILED")
		return err
	}
	if changed {
		fmt.Println("OK")
	} else {
		fmt.Println("unchanged")
	}

	if !deployNoInvalidate && (synced.Changed() || stackChanged) {
		fmt.Print("Invalidating cache... ")
		if _, err := d.InvalidateCache(ctx, distributionID); err != nil {
			fmt.Println("FAILED")
			return err
		}
		fmt.Println("OK")
	}

	if !created && !synced.Changed() && !stackChanged && !changed {
		fmt.Println("No changes. Deployment is up-to-date.")
		return nil
	}

	fmt.Println("\nDeploy complete!")
	fmt.Printf("  Content URL: %s\n", baseURL)
	fmt.Printf("  Distribution: %s\n", distributionID)
	return nil
}
