package source

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/YuCat-OVO/DApi/common"
	sreCommon "github.com/devopsext/sre/common"
	"github.com/devopsext/utils"
)

type FileOptions struct {
	Paths []string
	Rules *common.EndpointRules
}

// File loads seed endpoints from a plain text file, one raw URL or host
// per line. The first readable file of the priority list wins.
type File struct {
	options *FileOptions
	logger  sreCommon.Logger
}

const SourceFileName = "File"

func (f *File) Name() string {
	return SourceFileName
}

func (f *File) find() string {

	for _, p := range f.options.Paths {

		p = strings.TrimSpace(p)
		if utils.IsEmpty(p) {
			continue
		}
		if utils.FileExists(p) {
			return p
		}
	}
	return ""
}

func (f *File) Load() (*common.SourceResult, error) {

	path := f.find()
	if utils.IsEmpty(path) {
		return nil, fmt.Errorf("File cannot find any of %s", f.options.Paths)
	}

	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("File cannot read %s, error: %s", path, err)
	}
	defer fd.Close()

	r := &common.SourceResult{
		Source: f,
	}

	num := 0
	scanner := bufio.NewScanner(fd)
	for scanner.Scan() {

		num = num + 1
		line := strings.TrimSpace(scanner.Text())
		if utils.IsEmpty(line) {
			continue
		}

		e, err := common.ParseEndpoint(line, f.options.Rules)
		if err != nil {
			f.logger.Warn("File skipped line %d of %s: %s", num, path, err)
			continue
		}
		r.Endpoints.Add(e)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("File cannot read %s, error: %s", path, err)
	}

	f.logger.Debug("File loaded %d endpoints from %s", r.Endpoints.Len(), path)
	return r, nil
}

func NewFile(options *FileOptions, observability *common.Observability) *File {

	logger := observability.Logs()
	if len(options.Paths) == 0 {
		logger.Debug("File paths are not defined. Skipped.")
		return nil
	}

	return &File{
		options: options,
		logger:  logger,
	}
}
