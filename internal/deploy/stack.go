package deploy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/google/uuid"
	"github.com/nathanielng/kiro-telegram-bot/internal/errdefs"
	"github.com/nathanielng/kiro-telegram-bot/internal/logging"
)

// Output keys produced by the embedded template.
const (
	OutputDistributionID     = "DistributionId"
	OutputDistributionDomain = "DistributionDomainName"
)

// StackOutputs holds the outputs of a stack keyed by output name.
type StackOutputs map[string]string

// Converge brings the named stack in line with the embedded template via a
// change set and returns the stack outputs. A change set that contains no
// changes is deleted and reported as success with changed=false. The call
// blocks until the stack reaches a terminal state.
func (d *Deployer) Converge(ctx context.Context, stackName string, params map[string]string) (StackOutputs, bool, error) {
	if err := ValidateParameters(TemplateBody(), params); err != nil {
		return nil, false, err
	}

	stack, err := d.describeStack(ctx, stackName)
	if err != nil {
		return nil, false, err
	}

	changeSetType := cftypes.ChangeSetTypeUpdate
	if stack == nil {
		changeSetType = cftypes.ChangeSetTypeCreate
	} else {
		switch stack.StackStatus {
		case cftypes.StackStatusReviewInProgress:
			// A leftover from an aborted first deploy; still counts as create.
			changeSetType = cftypes.ChangeSetTypeCreate
		case cftypes.StackStatusRollbackComplete:
			return nil, false, errdefs.Newf(errdefs.ClassRolledBack, "converge stack",
				"stack %s is in ROLLBACK_COMPLETE and cannot be updated", stackName).
				WithHint("delete the failed stack in CloudFormation and re-run")
		}
	}

	changeSetName := "kiroctl-" + uuid.NewString()
	logging.Debug("creating change set", "stack", stackName, "change_set", changeSetName, "type", string(changeSetType))

	_, err = d.stacks.CreateChangeSet(ctx, &cloudformation.CreateChangeSetInput{
		StackName:     aws.String(stackName),
		ChangeSetName: aws.String(changeSetName),
		ChangeSetType: changeSetType,
		TemplateBody:  aws.String(TemplateBody()),
		Parameters:    stackParameters(params),
	})
	if err != nil {
		return nil, false, errdefs.ClassifyAWS("create change set", err)
	}

	ready, err := d.waitForChangeSet(ctx, stackName, changeSetName)
	if err != nil {
		return nil, false, err
	}
	if !ready {
		// No changes to apply; current outputs are already the answer.
		outputs := StackOutputs{}
		if current, err := d.describeStack(ctx, stackName); err == nil && current != nil {
			outputs = stackOutputs(current)
		}
		logging.Info("stack already up to date", "stack", stackName)
		return outputs, false, nil
	}

	_, err = d.stacks.ExecuteChangeSet(ctx, &cloudformation.ExecuteChangeSetInput{
		StackName:     aws.String(stackName),
		ChangeSetName: aws.String(changeSetName),
	})
	if err != nil {
		return nil, false, errdefs.ClassifyAWS("execute change set", err)
	}

	final, err := d.waitForStack(ctx, stackName)
	if err != nil {
		return nil, false, err
	}
	logging.Info("stack converged", "stack", stackName, "status", string(final.StackStatus))
	return stackOutputs(final), true, nil
}

// describeStack returns the stack or nil when it does not exist.
func (d *Deployer) describeStack(ctx context.Context, name string) (*cftypes.Stack, error) {
	out, err := d.stacks.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(name),
	})
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil, nil
		}
		return nil, errdefs.ClassifyAWS("describe stack", err)
	}
	if len(out.Stacks) == 0 {
		return nil, nil
	}
	return &out.Stacks[0], nil
}

// waitForChangeSet polls until the change set is executable. It returns
// false when the change set failed because it contained no changes.
func (d *Deployer) waitForChangeSet(ctx context.Context, stackName, changeSetName string) (bool, error) {
	for {
		out, err := d.stacks.DescribeChangeSet(ctx, &cloudformation.DescribeChangeSetInput{
			StackName:     aws.String(stackName),
			ChangeSetName: aws.String(changeSetName),
		})
		if err != nil {
			return false, errdefs.ClassifyAWS("describe change set", err)
		}

		switch out.Status {
		case cftypes.ChangeSetStatusCreateComplete:
			return true, nil
		case cftypes.ChangeSetStatusFailed:
			reason := aws.ToString(out.StatusReason)
			if isNoChanges(reason) {
				_, _ = d.stacks.DeleteChangeSet(ctx, &cloudformation.DeleteChangeSetInput{
					StackName:     aws.String(stackName),
					ChangeSetName: aws.String(changeSetName),
				})
				return false, nil
			}
			return false, errdefs.ClassifyAWS("create change set",
				fmt.Errorf("change set failed: %s", reason))
		}

		if err := d.sleep(ctx); err != nil {
			return false, err
		}
	}
}

// waitForStack polls until the stack reaches a terminal state and returns
// it, classifying rollbacks and failures.
func (d *Deployer) waitForStack(ctx context.Context, stackName string) (*cftypes.Stack, error) {
	for {
		stack, err := d.describeStack(ctx, stackName)
		if err != nil {
			return nil, err
		}
		if stack == nil {
			return nil, errdefs.Newf(errdefs.ClassUnclassified, "converge stack",
				"stack %s disappeared while waiting for completion", stackName)
		}

		status := string(stack.StackStatus)
		switch {
		case strings.HasSuffix(status, "_IN_PROGRESS"):
			if err := d.sleep(ctx); err != nil {
				return nil, err
			}
		case stack.StackStatus == cftypes.StackStatusCreateComplete,
			stack.StackStatus == cftypes.StackStatusUpdateComplete:
			return stack, nil
		case strings.Contains(status, "ROLLBACK"):
			return nil, errdefs.Newf(errdefs.ClassRolledBack, "converge stack",
				"stack %s rolled back (%s): %s", stackName, status, aws.ToString(stack.StackStatusReason)).
				WithHint(errdefs.HintFor(errdefs.ClassRolledBack))
		default:
			return nil, errdefs.ClassifyAWS("converge stack",
				fmt.Errorf("stack %s ended in %s: %s", stackName, status, aws.ToString(stack.StackStatusReason)))
		}
	}
}

// isNoChanges recognizes the change set failure reasons CloudFormation uses
// for an empty diff.
func isNoChanges(reason string) bool {
	return strings.Contains(reason, "didn't contain changes") ||
		strings.Contains(reason, "No updates are to be performed")
}

func stackParameters(params map[string]string) []cftypes.Parameter {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]cftypes.Parameter, 0, len(keys))
	for _, k := range keys {
		out = append(out, cftypes.Parameter{
			ParameterKey:   aws.String(k),
			ParameterValue: aws.String(params[k]),
		})
	}
	return out
}

func stackOutputs(stack *cftypes.Stack) StackOutputs {
	outputs := make(StackOutputs, len(stack.Outputs))
	for _, o := range stack.Outputs {
		outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return outputs
}

// ExtractOutputs picks the named outputs, failing with a MissingOutput error
// that names every absent key.
func ExtractOutputs(outputs StackOutputs, keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	var missing []string
	for _, k := range keys {
		v, ok := outputs[k]
		if !ok || v == "" {
			missing = append(missing, k)
			continue
		}
		values[k] = v
	}
	if len(missing) > 0 {
		return nil, errdefs.Newf(errdefs.ClassMissingOutput, "extract outputs",
			"stack outputs missing: %s", strings.Join(missing, ", ")).
			WithHint(errdefs.HintFor(errdefs.ClassMissingOutput))
	}
	return values, nil
}
