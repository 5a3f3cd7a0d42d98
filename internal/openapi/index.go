// Package openapi loads the backend services' OpenAPI contracts and checks
// the BFF's route tables against them.
package openapi

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

// IndexedOperation holds a resolved OpenAPI operation with its context.
type IndexedOperation struct {
	ServiceID    string
	OperationID  string
	Method       string
	PathTemplate string
	Parameters   []*openapi3.Parameter
	RequestBody  *openapi3.RequestBody
}

// Index is an in-memory index of OpenAPI operations keyed by (serviceID, operationID).
type Index struct {
	operations map[string]IndexedOperation // key: "serviceID:operationID"
	byService  map[string][]string         // serviceID → []operationID
}

// NewIndex creates an empty OpenAPI index.
func NewIndex() *Index {
	return &Index{
		operations: make(map[string]IndexedOperation),
		byService:  make(map[string][]string),
	}
}

func operationKey(serviceID, operationID string) string {
	return serviceID + ":" + operationID
}

// Load parses the configured spec files and indexes all operations that
// carry an operationId. Relative spec paths resolve against cfg.Directory.
func (idx *Index) Load(cfg config.SpecsConfig) error {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false

	for _, src := range cfg.Sources {
		path := src.SpecFile
		if !filepath.IsAbs(path) && cfg.Directory != "" {
			path = filepath.Join(cfg.Directory, path)
		}

		doc, err := loader.LoadFromFile(path)
		if err != nil {
			return fmt.Errorf("openapi: loading %s (%s): %w", src.ServiceID, path, err)
		}
		if err := doc.Validate(context.Background()); err != nil {
			return fmt.Errorf("openapi: validating %s: %w", src.ServiceID, err)
		}

		for pathTemplate, pathItem := range doc.Paths.Map() {
			for method, op := range pathItem.Operations() {
				if op.OperationID == "" {
					continue
				}

				params := make([]*openapi3.Parameter, 0)
				for _, ref := range pathItem.Parameters {
					if ref.Value != nil {
						params = append(params, ref.Value)
					}
				}
				for _, ref := range op.Parameters {
					if ref.Value != nil {
						params = append(params, ref.Value)
					}
				}

				var reqBody *openapi3.RequestBody
				if op.RequestBody != nil && op.RequestBody.Value != nil {
					reqBody = op.RequestBody.Value
				}

				key := operationKey(src.ServiceID, op.OperationID)
				idx.operations[key] = IndexedOperation{
					ServiceID:    src.ServiceID,
					OperationID:  op.OperationID,
					Method:       method,
					PathTemplate: pathTemplate,
					Parameters:   params,
					RequestBody:  reqBody,
				}
				idx.byService[src.ServiceID] = append(idx.byService[src.ServiceID], op.OperationID)
			}
		}
	}

	return nil
}

// GetOperation returns the indexed operation for the given service and operation ID.
func (idx *Index) GetOperation(serviceID, operationID string) (IndexedOperation, bool) {
	op, ok := idx.operations[operationKey(serviceID, operationID)]
	return op, ok
}

// AllOperationIDs returns all operation IDs for the given service, sorted.
func (idx *Index) AllOperationIDs(serviceID string) []string {
	ids := make([]string, len(idx.byService[serviceID]))
	copy(ids, idx.byService[serviceID])
	sort.Strings(ids)
	return ids
}

// Services returns the IDs of services with a loaded spec, sorted.
func (idx *Index) Services() []string {
	ids := make([]string, 0, len(idx.byService))
	for id := range idx.byService {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Mismatch describes a route that disagrees with its service's contract.
type Mismatch struct {
	Route  model.Route
	Reason string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s/%s: %s", m.Route.ServiceID, m.Route.OperationID, m.Reason)
}

// CheckRoutes compares route tables with the loaded contracts. Routes of
// services without a spec are skipped. Path parameters are compared by
// position, so {id} matches {arrival_id}.
func (idx *Index) CheckRoutes(routes []model.Route) []Mismatch {
	var out []Mismatch
	for _, r := range routes {
		if _, loaded := idx.byService[r.ServiceID]; !loaded {
			continue
		}
		op, ok := idx.GetOperation(r.ServiceID, r.OperationID)
		if !ok {
			out = append(out, Mismatch{Route: r, Reason: "operation not found in contract"})
			continue
		}
		if !strings.EqualFold(op.Method, r.Method) {
			out = append(out, Mismatch{Route: r, Reason: fmt.Sprintf("method %s, contract has %s", r.Method, op.Method)})
		}
		if normalizePath(op.PathTemplate) != normalizePath(r.Path) {
			out = append(out, Mismatch{Route: r, Reason: fmt.Sprintf("path %s, contract has %s", r.Path, op.PathTemplate)})
		}
	}
	return out
}

func normalizePath(p string) string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segs {
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			segs[i] = "{}"
		}
	}
	return "/" + strings.Join(segs, "/")
}
