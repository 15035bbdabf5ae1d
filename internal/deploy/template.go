package deploy

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/nathanielng/kiro-telegram-bot/internal/errdefs"
	"gopkg.in/yaml.v3"
)

//go:embed templates/cdn.yaml
var cdnTemplate string

// TemplateBody returns the embedded CloudFormation template for the CDN
// stack.
func TemplateBody() string {
	return cdnTemplate
}

type templateDoc struct {
	Parameters map[string]templateParameter `yaml:"Parameters"`
}

type templateParameter struct {
	Type    string `yaml:"Type"`
	Default any    `yaml:"Default"`
}

// ValidateParameters checks the supplied stack parameters against the
// template's Parameters block before any API call: unknown parameters and
// missing required (default-less) parameters fail with a
// TemplateValidationFailure.
func ValidateParameters(body string, supplied map[string]string) error {
	var doc templateDoc
	if err := yaml.Unmarshal([]byte(body), &doc); err != nil {
		return errdefs.New(errdefs.ClassTemplateValidation, "parse template", err).
			WithHint(errdefs.HintFor(errdefs.ClassTemplateValidation))
	}

	var problems []string
	for name := range supplied {
		if _, ok := doc.Parameters[name]; !ok {
			problems = append(problems, fmt.Sprintf("parameter %q is not declared in the template", name))
		}
	}
	for name, p := range doc.Parameters {
		if p.Default == nil && supplied[name] == "" {
			problems = append(problems, fmt.Sprintf("required parameter %q has no value", name))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return errdefs.Newf(errdefs.ClassTemplateValidation, "validate parameters",
		"%s", strings.Join(problems, "; ")).
		WithHint(errdefs.HintFor(errdefs.ClassTemplateValidation))
}
