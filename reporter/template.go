package reporter

import (
	"errors"
	"fmt"
	"os"

	"github.com/YuCat-OVO/DApi/common"
	sreCommon "github.com/devopsext/sre/common"
	toolsRender "github.com/devopsext/tools/render"
	"github.com/devopsext/utils"
	"github.com/pterm/pterm"
)

type TemplateOptions struct {
	Content string
	Output  string
}

// Template renders the report through a user supplied text template and
// writes the result to a file, or to the terminal when no output is set.
type Template struct {
	options  TemplateOptions
	logger   sreCommon.Logger
	template *toolsRender.TextTemplate
}

const ReporterTemplateName = "Template"

func (t *Template) Name() string {
	return ReporterTemplateName
}

func (t *Template) Report(r *common.Report) error {

	if r == nil {
		return errors.New("Template reporter cannot process empty report")
	}

	b, err := t.template.RenderObject(r)
	if err != nil {
		return fmt.Errorf("Template reporter cannot render report, error: %s", err)
	}

	if utils.IsEmpty(t.options.Output) {
		pterm.Println(string(b))
		return nil
	}

	err = os.WriteFile(t.options.Output, b, 0644)
	if err != nil {
		return fmt.Errorf("Template reporter cannot write %s, error: %s", t.options.Output, err)
	}

	t.logger.Info("Template reporter wrote %d bytes to %s", len(b), t.options.Output)
	return nil
}

func NewTemplate(options TemplateOptions, observability *common.Observability) *Template {

	logger := observability.Logs()
	if utils.IsEmpty(options.Content) {
		logger.Debug("Template reporter content is not defined. Skipped.")
		return nil
	}

	contentOpts := toolsRender.TemplateOptions{
		Content: options.Content,
	}
	template, err := toolsRender.NewTextTemplate(contentOpts, observability)
	if err != nil {
		logger.Error("Template reporter error: %s", err)
		return nil
	}

	return &Template{
		options:  options,
		logger:   logger,
		template: template,
	}
}
