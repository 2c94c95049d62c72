package reporter

import (
	"errors"
	"fmt"
	"os"

	"github.com/YuCat-OVO/DApi/common"
	sreCommon "github.com/devopsext/sre/common"
	"github.com/devopsext/utils"
)

type JsonOptions struct {
	Path string
}

// Json writes the full report as an indented JSON document to a file.
type Json struct {
	options JsonOptions
	logger  sreCommon.Logger
}

const ReporterJsonName = "Json"

func (j *Json) Name() string {
	return ReporterJsonName
}

func (j *Json) Report(r *common.Report) error {

	if r == nil {
		return errors.New("Json reporter cannot process empty report")
	}

	b, err := r.ToJSON()
	if err != nil {
		return fmt.Errorf("Json reporter cannot serialize report, error: %s", err)
	}

	err = os.WriteFile(j.options.Path, b, 0644)
	if err != nil {
		return fmt.Errorf("Json reporter cannot write %s, error: %s", j.options.Path, err)
	}

	j.logger.Info("Json reporter wrote %d bytes to %s", len(b), j.options.Path)
	return nil
}

func NewJson(options JsonOptions, observability *common.Observability) *Json {

	logger := observability.Logs()
	if utils.IsEmpty(options.Path) {
		logger.Debug("Json reporter path is not defined. Skipped.")
		return nil
	}

	return &Json{
		options: options,
		logger:  logger,
	}
}
