package deploy

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cfronttypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// newTestDeployer builds a Deployer over test doubles with polling disabled.
func newTestDeployer(b BucketAPI, o ObjectAPI, s StackAPI, c CDNAPI) *Deployer {
	d := New(&Clients{Buckets: b, Objects: o, Stacks: s, CDN: c})
	d.PollInterval = 0
	return d
}

func apiError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message}
}

// stubBuckets scripts the bucket API per call.
type stubBuckets struct {
	headFn   func(*s3.HeadBucketInput) (*s3.HeadBucketOutput, error)
	createFn func(*s3.CreateBucketInput) (*s3.CreateBucketOutput, error)

	headCalls   int
	createCalls int
	lastCreate  *s3.CreateBucketInput
}

func (f *stubBuckets) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.headCalls++
	if f.headFn != nil {
		return f.headFn(in)
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *stubBuckets) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.createCalls++
	f.lastCreate = in
	if f.createFn != nil {
		return f.createFn(in)
	}
	return &s3.CreateBucketOutput{}, nil
}

// stubStacks scripts the CloudFormation API per call.
type stubStacks struct {
	describeStacksFn    func(*cloudformation.DescribeStacksInput) (*cloudformation.DescribeStacksOutput, error)
	createChangeSetFn   func(*cloudformation.CreateChangeSetInput) (*cloudformation.CreateChangeSetOutput, error)
	describeChangeSetFn func(*cloudformation.DescribeChangeSetInput) (*cloudformation.DescribeChangeSetOutput, error)
	executeChangeSetFn  func(*cloudformation.ExecuteChangeSetInput) (*cloudformation.ExecuteChangeSetOutput, error)

	createCalls  int
	executeCalls int
	deleteCalls  int
	lastCreate   *cloudformation.CreateChangeSetInput
}

func (f *stubStacks) DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	if f.describeStacksFn != nil {
		return f.describeStacksFn(in)
	}
	return nil, apiError("ValidationError", fmt.Sprintf("Stack with id %s does not exist", aws.ToString(in.StackName)))
}

func (f *stubStacks) CreateChangeSet(ctx context.Context, in *cloudformation.CreateChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error) {
	f.createCalls++
	f.lastCreate = in
	if f.createChangeSetFn != nil {
		return f.createChangeSetFn(in)
	}
	return &cloudformation.CreateChangeSetOutput{}, nil
}

func (f *stubStacks) DescribeChangeSet(ctx context.Context, in *cloudformation.DescribeChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
	if f.describeChangeSetFn != nil {
		return f.describeChangeSetFn(in)
	}
	return &cloudformation.DescribeChangeSetOutput{Status: cftypes.ChangeSetStatusCreateComplete}, nil
}

func (f *stubStacks) ExecuteChangeSet(ctx context.Context, in *cloudformation.ExecuteChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.ExecuteChangeSetOutput, error) {
	f.executeCalls++
	if f.executeChangeSetFn != nil {
		return f.executeChangeSetFn(in)
	}
	return &cloudformation.ExecuteChangeSetOutput{}, nil
}

func (f *stubStacks) DeleteChangeSet(ctx context.Context, in *cloudformation.DeleteChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.DeleteChangeSetOutput, error) {
	f.deleteCalls++
	return &cloudformation.DeleteChangeSetOutput{}, nil
}

// fakeCloud is a stateful in-memory stand-in for S3, CloudFormation, and
// CloudFront, good enough to run the whole deploy path twice and observe
// idempotency. Mutations records every call that changes cloud state.
type fakeCloud struct {
	bucketExists bool
	bucketRegion string // captured location constraint
	objects      map[string][]byte

	stackExists bool
	stackStatus cftypes.StackStatus
	stackParams string // canonical rendering of the last applied parameters

	pendingName      string
	pendingType      cftypes.ChangeSetType
	pendingParams    string
	pendingNoChanges bool

	invalidations []string
	mutations     []string
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{objects: make(map[string][]byte)}
}

func (f *fakeCloud) mutate(what string) {
	f.mutations = append(f.mutations, what)
}

func (f *fakeCloud) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !f.bucketExists {
		return nil, apiError("NotFound", "Not Found")
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeCloud) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.mutate("CreateBucket")
	if f.bucketExists {
		return nil, apiError("BucketAlreadyOwnedByYou", "already owned")
	}
	f.bucketExists = true
	if in.CreateBucketConfiguration != nil {
		f.bucketRegion = string(in.CreateBucketConfiguration.LocationConstraint)
	}
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeCloud) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(in.Prefix)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for key, data := range f.objects {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		out.Contents = append(out.Contents, s3types.Object{
			Key:  aws.String(key),
			ETag: aws.String(`"` + localMD5Hex(data) + `"`),
			Size: aws.Int64(int64(len(data))),
		})
	}
	return out, nil
}

func (f *fakeCloud) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mutate("PutObject:" + aws.ToString(in.Key))
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeCloud) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	for _, obj := range in.Delete.Objects {
		f.mutate("DeleteObject:" + aws.ToString(obj.Key))
		delete(f.objects, aws.ToString(obj.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeCloud) DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	if !f.stackExists {
		return nil, apiError("ValidationError", fmt.Sprintf("Stack with id %s does not exist", aws.ToString(in.StackName)))
	}
	stack := cftypes.Stack{
		StackName:   in.StackName,
		StackStatus: f.stackStatus,
		Outputs: []cftypes.Output{
			{OutputKey: aws.String(OutputDistributionID), OutputValue: aws.String("E2FAKEDIST")},
			{OutputKey: aws.String(OutputDistributionDomain), OutputValue: aws.String("dfake123.cloudfront.net")},
		},
	}
	return &cloudformation.DescribeStacksOutput{Stacks: []cftypes.Stack{stack}}, nil
}

func (f *fakeCloud) CreateChangeSet(ctx context.Context, in *cloudformation.CreateChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error) {
	params := canonicalParams(in.Parameters)
	f.pendingName = aws.ToString(in.ChangeSetName)
	f.pendingType = in.ChangeSetType
	f.pendingParams = params
	f.pendingNoChanges = f.stackExists && params == f.stackParams
	return &cloudformation.CreateChangeSetOutput{Id: in.ChangeSetName}, nil
}

func (f *fakeCloud) DescribeChangeSet(ctx context.Context, in *cloudformation.DescribeChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
	if f.pendingNoChanges {
		return &cloudformation.DescribeChangeSetOutput{
			Status:       cftypes.ChangeSetStatusFailed,
			StatusReason: aws.String("The submitted information didn't contain changes. Submit different information to create a change set."),
		}, nil
	}
	return &cloudformation.DescribeChangeSetOutput{Status: cftypes.ChangeSetStatusCreateComplete}, nil
}

func (f *fakeCloud) ExecuteChangeSet(ctx context.Context, in *cloudformation.ExecuteChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.ExecuteChangeSetOutput, error) {
	f.mutate("ExecuteChangeSet")
	f.stackExists = true
	f.stackParams = f.pendingParams
	if f.pendingType == cftypes.ChangeSetTypeCreate {
		f.stackStatus = cftypes.StackStatusCreateComplete
	} else {
		f.stackStatus = cftypes.StackStatusUpdateComplete
	}
	return &cloudformation.ExecuteChangeSetOutput{}, nil
}

func (f *fakeCloud) DeleteChangeSet(ctx context.Context, in *cloudformation.DeleteChangeSetInput, _ ...func(*cloudformation.Options)) (*cloudformation.DeleteChangeSetOutput, error) {
	f.pendingName = ""
	f.pendingNoChanges = false
	return &cloudformation.DeleteChangeSetOutput{}, nil
}

func (f *fakeCloud) CreateInvalidation(ctx context.Context, in *cloudfront.CreateInvalidationInput, _ ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
	id := fmt.Sprintf("INV%d", len(f.invalidations)+1)
	f.invalidations = append(f.invalidations, aws.ToString(in.DistributionId))
	return &cloudfront.CreateInvalidationOutput{
		Invalidation: &cfronttypes.Invalidation{Id: aws.String(id)},
	}, nil
}

func canonicalParams(params []cftypes.Parameter) string {
	var b bytes.Buffer
	for _, p := range params {
		fmt.Fprintf(&b, "%s=%s;", aws.ToString(p.ParameterKey), aws.ToString(p.ParameterValue))
	}
	return b.String()
}

func localMD5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
