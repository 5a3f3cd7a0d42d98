package statusreg

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// Loader scans directories for YAML status files, parses them, and computes
// SHA-256 checksums.
type Loader struct{}

// NewLoader creates a new status Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadAll recursively scans directories for *.yaml and *.yml files and parses
// each into a StatusDomainDefinition.
func (l *Loader) LoadAll(directories []string) ([]model.StatusDomainDefinition, error) {
	var defs []model.StatusDomainDefinition

	for _, dir := range directories {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".yaml" && ext != ".yml" {
				return nil
			}

			def, err := l.LoadFile(path)
			if err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}
			defs = append(defs, def)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning directory %s: %w", dir, err)
		}
	}

	return defs, nil
}

// LoadFile loads and parses a single YAML status file.
func (l *Loader) LoadFile(path string) (model.StatusDomainDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.StatusDomainDefinition{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var def model.StatusDomainDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return model.StatusDomainDefinition{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	def.Checksum = fmt.Sprintf("%x", sha256.Sum256(data))
	def.SourceFile = path

	return def, nil
}

// VError describes a single validation error in a status file.
type VError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e VError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate checks loaded status files structurally.
func Validate(defs []model.StatusDomainDefinition) []VError {
	var errs []VError
	seen := make(map[string]string)

	for i, def := range defs {
		prefix := fmt.Sprintf("status[%d]", i)
		if def.SourceFile != "" {
			prefix = def.SourceFile
		}

		if def.Domain == "" {
			errs = append(errs, VError{Path: prefix + ".domain", Code: "REQUIRED", Message: "domain is required"})
		} else if other, dup := seen[def.Domain]; dup {
			errs = append(errs, VError{Path: prefix + ".domain", Code: "DUPLICATE",
				Message: fmt.Sprintf("domain %q already declared in %s", def.Domain, other)})
		} else {
			seen[def.Domain] = prefix
		}

		for status, cfg := range def.Statuses {
			sp := fmt.Sprintf("%s.statuses.%s", prefix, status)
			if strings.TrimSpace(status) == "" {
				errs = append(errs, VError{Path: sp, Code: "REQUIRED", Message: "status value must not be blank"})
			}
			if cfg.Label == "" {
				errs = append(errs, VError{Path: sp + ".label", Code: "REQUIRED", Message: "label is required"})
			}
			for j, a := range cfg.Actions {
				if strings.TrimSpace(a) == "" {
					errs = append(errs, VError{Path: fmt.Sprintf("%s.actions[%d]", sp, j), Code: "REQUIRED", Message: "action must not be blank"})
				}
			}
		}
	}
	return errs
}
