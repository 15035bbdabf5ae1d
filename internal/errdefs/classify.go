package errdefs

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// awsCodeClasses maps typed AWS API error codes to classes. Codes are the
// values reported by smithy.APIError.ErrorCode.
var awsCodeClasses = map[string]Class{
	"BucketAlreadyExists":                ClassNameAlreadyTaken,
	"AccessDenied":                       ClassAccessDenied,
	"AccessDeniedException":              ClassAccessDenied,
	"UnauthorizedOperation":              ClassAccessDenied,
	"ExpiredToken":                       ClassAccessDenied,
	"InvalidAccessKeyId":                 ClassAccessDenied,
	"SignatureDoesNotMatch":              ClassAccessDenied,
	"InvalidLocationConstraint":          ClassInvalidRegion,
	"IllegalLocationConstraintException": ClassInvalidRegion,
	"AuthorizationHeaderMalformed":       ClassInvalidRegion,
	"ValidationError":                    ClassTemplateValidation,
}

// awsMessageClasses is the substring fallback, applied case-insensitively to
// the raw diagnostic text when no typed code matched. Order matters: the
// first match wins.
var awsMessageClasses = []struct {
	substr string
	class  Class
}{
	{"bucketalreadyexists", ClassNameAlreadyTaken},
	{"bucket name is not available", ClassNameAlreadyTaken},
	{"access denied", ClassAccessDenied},
	{"accessdenied", ClassAccessDenied},
	{"not authorized", ClassAccessDenied},
	{"forbidden", ClassAccessDenied},
	{"location constraint", ClassInvalidRegion},
	{"invalidlocationconstraint", ClassInvalidRegion},
	{"wrong region", ClassInvalidRegion},
	{"template format error", ClassTemplateValidation},
	{"template error", ClassTemplateValidation},
	{"invalid template", ClassTemplateValidation},
	{"rollback", ClassRolledBack},
}

// classHints carries the default remediation guidance per class.
var classHints = map[Class]string{
	ClassMissingConfiguration: "set the missing keys in the environment or the env file",
	ClassNameAlreadyTaken:     "S3 bucket names are global; choose a different S3_BUCKET_NAME",
	ClassAccessDenied:         "check the AWS credentials and IAM permissions of the current principal",
	ClassInvalidRegion:        "check that AWS_REGION matches the bucket's location constraint",
	ClassTemplateValidation:   "fix the template or parameter values and re-run",
	ClassRolledBack:           "inspect the stack events in the CloudFormation console for the root cause",
	ClassMissingOutput:        "the stack may be from an older template; re-run once it is up to date",
}

// HintFor returns the default remediation hint for class, or "".
func HintFor(class Class) string {
	return classHints[class]
}

// ClassifyAWS wraps an AWS API error with the class derived from its typed
// error code, falling back to matching the raw message text. Errors that are
// already classified pass through unchanged; nil stays nil.
func ClassifyAWS(op string, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}

	class := ClassUnclassified
	var ae smithy.APIError
	if errors.As(err, &ae) {
		if c, ok := awsCodeClasses[ae.ErrorCode()]; ok {
			class = c
		}
	}
	if class == ClassUnclassified {
		msg := strings.ToLower(err.Error())
		for _, rule := range awsMessageClasses {
			if strings.Contains(msg, rule.substr) {
				class = rule.class
				break
			}
		}
	}

	return New(class, op, err).WithHint(classHints[class])
}
