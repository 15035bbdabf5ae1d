package errdefs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyAWS_TypedCode(t *testing.T) {
	cause := &smithy.GenericAPIError{Code: "AccessDenied", Message: "User is not authorized to perform s3:CreateBucket"}

	err := ClassifyAWS("create bucket", cause)
	require.Error(t, err)
	assert.Equal(t, ClassAccessDenied, ClassOf(err))
	assert.True(t, IsAccessDenied(err))
	assert.Contains(t, err.Error(), "s3:CreateBucket")
	assert.Contains(t, err.Error(), "hint:")
}

func TestClassifyAWS_TypedCodeBeatsMessage(t *testing.T) {
	// The message mentions a rollback, but the typed code decides.
	cause := &smithy.GenericAPIError{Code: "AccessDenied", Message: "rollback not permitted"}

	err := ClassifyAWS("execute change set", cause)
	assert.Equal(t, ClassAccessDenied, ClassOf(err))
}

func TestClassifyAWS_MessageFallback(t *testing.T) {
	cases := []struct {
		msg  string
		want Class
	}{
		{"api error: Access Denied", ClassAccessDenied},
		{"BucketAlreadyExists: the requested bucket name is not available", ClassNameAlreadyTaken},
		{"the unspecified location constraint is incompatible", ClassInvalidRegion},
		{"Template format error: unresolved condition", ClassTemplateValidation},
		{"stack is in UPDATE_ROLLBACK_COMPLETE state", ClassRolledBack},
		{"connection reset by peer", ClassUnclassified},
	}

	for _, tc := range cases {
		err := ClassifyAWS("op", errors.New(tc.msg))
		assert.Equal(t, tc.want, ClassOf(err), "message %q", tc.msg)
		assert.Contains(t, err.Error(), tc.msg, "raw diagnostic must survive")
	}
}

func TestClassifyAWS_PassThrough(t *testing.T) {
	orig := New(ClassMissingOutput, "extract outputs", errors.New("no DistributionId"))

	err := ClassifyAWS("other op", orig)
	assert.Same(t, error(orig), err)

	assert.Nil(t, ClassifyAWS("op", nil))
}

func TestClassOf(t *testing.T) {
	assert.Equal(t, Class(""), ClassOf(nil))
	assert.Equal(t, ClassUnclassified, ClassOf(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", New(ClassRolledBack, "converge", errors.New("ROLLBACK_COMPLETE")))
	assert.Equal(t, ClassRolledBack, ClassOf(wrapped))
	assert.True(t, IsRolledBack(wrapped))
}

func TestError_IsMatchesByClass(t *testing.T) {
	err := Newf(ClassMissingConfiguration, "load config", "missing S3_BUCKET_NAME")

	assert.True(t, errors.Is(err, New(ClassMissingConfiguration, "", nil)))
	assert.False(t, errors.Is(err, New(ClassAccessDenied, "", nil)))
}

func TestError_Rendering(t *testing.T) {
	err := New(ClassNameAlreadyTaken, "create bucket", errors.New("BucketAlreadyExists")).
		WithHint("choose another name")

	msg := err.Error()
	assert.Contains(t, msg, "[NameAlreadyTaken]")
	assert.Contains(t, msg, "create bucket")
	assert.Contains(t, msg, "BucketAlreadyExists")
	assert.Contains(t, msg, "hint: choose another name")
}

func TestErrAborted_NotClassified(t *testing.T) {
	assert.Equal(t, ClassUnclassified, ClassOf(ErrAborted))
	assert.False(t, errors.Is(ErrAborted, New(ClassUnclassified, "", nil)))
}
