// Package normalize converts raw package metadata documents into canonical
// objects.
//
// Two schema generations are supported at once. Legacy documents keep the
// object collections at the document root; modern documents nest them in a
// recursive namespace tree. Every namespace node, the root included, is
// scanned for every known collection key and the results are merged.
package normalize

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	apperrors "github.com/alsym/alsym/internal/errors"
	"github.com/alsym/alsym/internal/model"
)

// DefaultMaxDepth caps namespace, control and data-item recursion
const DefaultMaxDepth = 64

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// collections maps document collection keys to object types. The table is
// exhaustive; keys not listed here are ignored.
var collections = []struct {
	key string
	typ model.ObjectType
}{
	{"Tables", model.TypeTable},
	{"Pages", model.TypePage},
	{"Codeunits", model.TypeCodeunit},
	{"Reports", model.TypeReport},
	{"Queries", model.TypeQuery},
	{"XmlPorts", model.TypeXmlPort},
	{"Enums", model.TypeEnum},
	{"EnumTypes", model.TypeEnum},
	{"Interfaces", model.TypeInterface},
	{"PermissionSets", model.TypePermissionSet},
	{"ControlAddIns", model.TypeControlAddIn},
}

// Header is the package identity declared at the document root
type Header struct {
	Name      string `json:"name,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	Version   string `json:"version,omitempty"`
	AppID     string `json:"appId,omitempty"`
}

// Result is the outcome of normalizing one document
type Result struct {
	Header    Header
	Objects   []*model.Object
	Warnings  []*apperrors.Error
	Discarded int
}

// Normalizer converts metadata documents into canonical objects
type Normalizer struct {
	logger   *zap.Logger
	maxDepth int
}

// New creates a normalizer
func New(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		logger:   logger.Named("normalize"),
		maxDepth: DefaultMaxDepth,
	}
}

// WithMaxDepth overrides the recursion cap
func (n *Normalizer) WithMaxDepth(depth int) *Normalizer {
	if depth > 0 {
		n.maxDepth = depth
	}
	return n
}

// Normalize converts one document. A document whose root is not a JSON object
// fails with a DecodeFailure naming the package; individual objects that
// cannot be converted are skipped and reported in Result.Warnings.
func (n *Normalizer) Normalize(data []byte, packageName string) (*Result, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, apperrors.DecodeDocument(packageName, err)
	}
	if root == nil {
		return nil, apperrors.DecodeDocument(packageName, fmt.Errorf("document root is not an object"))
	}

	w := &walker{
		n:      n,
		pkg:    packageName,
		result: &Result{Header: readHeader(root)},
	}
	w.walk(root, "", 0)

	n.logger.Debug("normalized package",
		zap.String("package", packageName),
		zap.Int("objects", len(w.result.Objects)),
		zap.Int("warnings", len(w.result.Warnings)),
		zap.Int("discarded", w.result.Discarded),
	)
	return w.result, nil
}

// walker carries per-document state through the namespace recursion
type walker struct {
	n      *Normalizer
	pkg    string
	result *Result
}

func (w *walker) walk(node map[string]json.RawMessage, namespace string, depth int) {
	for _, c := range collections {
		raw, ok := lookup(node, c.key)
		if !ok {
			continue
		}
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			w.warn(c.key, fmt.Errorf("collection is not a list: %w", err))
			continue
		}
		for _, entry := range entries {
			w.object(entry, c.typ, namespace)
		}
	}

	raw, ok := lookup(node, "Namespaces")
	if !ok {
		return
	}
	var children []json.RawMessage
	if err := json.Unmarshal(raw, &children); err != nil {
		w.warn("Namespaces", fmt.Errorf("namespace list is not a list: %w", err))
		return
	}
	for _, entry := range children {
		var child map[string]json.RawMessage
		if err := json.Unmarshal(entry, &child); err != nil || child == nil {
			w.warn("Namespaces", fmt.Errorf("namespace node is not an object"))
			continue
		}
		name := stringField(child, "Name")
		if depth+1 > w.n.maxDepth {
			w.warn("namespace "+name, fmt.Errorf("nesting deeper than %d", w.n.maxDepth))
			continue
		}
		w.walk(child, joinNamespace(namespace, name), depth+1)
	}
}

func (w *walker) object(entry json.RawMessage, typ model.ObjectType, namespace string) {
	obj, err := w.extract(entry, typ)
	if err != nil {
		w.warn(identify(entry, typ), err)
		return
	}
	if obj == nil {
		w.result.Discarded++
		return
	}
	obj.Package = w.pkg
	obj.Namespace = namespace
	w.result.Objects = append(w.result.Objects, obj)
}

func (w *walker) extract(entry json.RawMessage, typ model.ObjectType) (*model.Object, error) {
	switch typ {
	case model.TypeTable:
		return w.table(entry)
	case model.TypePage:
		return w.page(entry)
	case model.TypeReport, model.TypeQuery, model.TypeXmlPort:
		return w.dataSet(entry, typ)
	case model.TypeEnum:
		return w.enum(entry)
	default:
		return w.plain(entry, typ)
	}
}

func (w *walker) warn(object string, err error) {
	e := apperrors.PartialObject(w.pkg, object, err)
	w.result.Warnings = append(w.result.Warnings, e)
	w.n.logger.Warn("object skipped",
		zap.String("package", w.pkg),
		zap.String("object", object),
		zap.Error(err),
	)
}

// identify names a failed entry as well as the broken JSON allows
func identify(entry json.RawMessage, typ model.ObjectType) string {
	var id rawIdentity
	_ = json.Unmarshal(entry, &id)
	switch {
	case id.Name != "" && id.ID != 0:
		return fmt.Sprintf("%s %d %s", typ, id.ID, id.Name)
	case id.Name != "":
		return fmt.Sprintf("%s %s", typ, id.Name)
	case id.ID != 0:
		return fmt.Sprintf("%s %d", typ, id.ID)
	default:
		return string(typ)
	}
}

func readHeader(root map[string]json.RawMessage) Header {
	return Header{
		Name:      stringField(root, "Name"),
		Publisher: stringField(root, "Publisher"),
		Version:   stringField(root, "Version"),
		AppID:     stringField(root, "AppId"),
	}
}

// lookup finds key exactly, then case-insensitively
func lookup(node map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	if raw, ok := node[key]; ok {
		return raw, !isNull(raw)
	}
	for k, raw := range node {
		if strings.EqualFold(k, key) {
			return raw, !isNull(raw)
		}
	}
	return nil, false
}

func stringField(node map[string]json.RawMessage, key string) string {
	raw, ok := lookup(node, key)
	if !ok {
		return ""
	}
	var s flexString
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return string(s)
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func joinNamespace(parent, name string) string {
	switch {
	case name == "":
		return parent
	case parent == "":
		return name
	default:
		return parent + "." + name
	}
}
