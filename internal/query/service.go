// Package query implements the bounded operation set exposed to clients:
// search, getDefinition, findReferences, searchMembers, getSummary and the
// package actions. It validates input, applies defaults and shapes
// responses; the store and the resolver do the actual work.
package query

import (
	"context"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/alsym/alsym/internal/errors"
	"github.com/alsym/alsym/internal/model"
	"github.com/alsym/alsym/internal/packages"
	"github.com/alsym/alsym/internal/references"
	"github.com/alsym/alsym/internal/store"
)

// Config holds the response shaping defaults
type Config struct {
	// DefaultLimit applies when a paged request names no limit
	DefaultLimit int

	// MaxLimit is the largest accepted page size
	MaxLimit int

	// FieldLimit caps fields in detailed object views
	FieldLimit int

	// ProcedureLimit caps procedures in detailed object views
	ProcedureLimit int
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		DefaultLimit:   20,
		MaxLimit:       500,
		FieldLimit:     100,
		ProcedureLimit: 50,
	}
}

// Loader runs package load actions
type Loader interface {
	Load(ctx context.Context, req packages.LoadRequest) (*packages.Report, error)
}

// Service is the query facade
type Service struct {
	store    *store.Store
	resolver *references.Resolver
	loader   Loader
	config   Config
	logger   *zap.Logger
}

// NewService creates a facade over st and resolver. loader may be nil, in
// which case the load action is rejected.
func NewService(st *store.Store, resolver *references.Resolver, loader Loader, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if cfg.FieldLimit == 0 {
		cfg.FieldLimit = def.FieldLimit
	}
	if cfg.ProcedureLimit == 0 {
		cfg.ProcedureLimit = def.ProcedureLimit
	}
	return &Service{
		store:    st,
		resolver: resolver,
		loader:   loader,
		config:   cfg,
		logger:   logger.Named("query"),
	}
}

// Config returns the effective configuration
func (s *Service) Config() Config {
	return s.config
}

// Search returns one page of objects
func (s *Service) Search(p SearchParams) (*SearchResult, error) {
	typ, err := parseType(p.ObjectType)
	if err != nil {
		return nil, err
	}
	var domain model.Domain
	if p.Domain != "" {
		if domain, err = model.ParseDomain(p.Domain); err != nil {
			return nil, apperrors.InvalidRequest("%v", err)
		}
	}
	limit, err := s.limit(p.Limit)
	if err != nil {
		return nil, err
	}
	if p.Offset < 0 {
		return nil, apperrors.InvalidRequest("offset must not be negative")
	}

	page := s.store.Search(store.SearchQuery{
		Pattern: strings.TrimSpace(p.Pattern),
		Type:    typ,
		Package: p.PackageName,
		Domain:  domain,
		Limit:   limit,
		Offset:  p.Offset,
	})

	sh := shape{
		summary:        p.SummaryMode == nil || *p.SummaryMode,
		fields:         p.IncludeFields,
		procedures:     p.IncludeProcedures,
		fieldLimit:     s.config.FieldLimit,
		procedureLimit: s.config.ProcedureLimit,
	}
	if !sh.summary {
		sh.fields, sh.procedures = true, true
	}

	result := &SearchResult{
		Objects: make([]*ObjectView, 0, len(page.Items)),
		Total:   page.Total,
		Offset:  page.Offset,
		Limit:   limit,
		HasMore: page.HasMore,
	}
	for _, obj := range page.Items {
		result.Objects = append(result.Objects, sh.view(obj))
	}
	return result, nil
}

// GetDefinition returns one object by id and/or name
func (s *Service) GetDefinition(p DefinitionParams) (*DefinitionResult, error) {
	if p.ObjectID == 0 && strings.TrimSpace(p.ObjectName) == "" {
		return nil, apperrors.InvalidRequest("objectId or objectName is required")
	}
	if p.ObjectID < 0 {
		return nil, apperrors.InvalidRequest("objectId must not be negative")
	}
	typ, err := parseType(p.ObjectType)
	if err != nil {
		return nil, err
	}
	fieldLimit, err := memberLimit("fieldLimit", p.FieldLimit, s.config.FieldLimit)
	if err != nil {
		return nil, err
	}
	procedureLimit, err := memberLimit("procedureLimit", p.ProcedureLimit, s.config.ProcedureLimit)
	if err != nil {
		return nil, err
	}

	res := s.store.Lookup(store.LookupQuery{
		ID:      p.ObjectID,
		Name:    strings.TrimSpace(p.ObjectName),
		Type:    typ,
		Package: p.PackageName,
	})
	switch res.Status {
	case store.LookupNotFound:
		return &DefinitionResult{Status: res.Status, Message: describeMiss(p.ObjectID, p.ObjectName, typ).Error()}, nil
	case store.LookupAmbiguous:
		return &DefinitionResult{
			Status:     res.Status,
			Candidates: summaries(res.Candidates),
			Message:    apperrors.Ambiguous("%d objects match; narrow with objectType or packageName", len(res.Candidates)).Error(),
		}, nil
	}

	sh := shape{
		summary:        p.SummaryMode,
		fields:         boolOr(p.IncludeFields, !p.SummaryMode),
		procedures:     boolOr(p.IncludeProcedures, !p.SummaryMode),
		fieldLimit:     fieldLimit,
		procedureLimit: procedureLimit,
	}
	return &DefinitionResult{Status: res.Status, Object: sh.view(res.Object)}, nil
}

// FindReferences lists the edges pointing at a target
func (s *Service) FindReferences(p ReferencesParams) (*ReferencesResult, error) {
	target := strings.TrimSpace(p.TargetName)
	if target == "" {
		return nil, apperrors.InvalidRequest("targetName is required")
	}
	var kind model.RelationKind
	if p.RelationKind != "" {
		k, err := model.ParseRelationKind(p.RelationKind)
		if err != nil {
			return nil, apperrors.InvalidRequest("%v", err)
		}
		kind = k
	}
	sourceType, err := parseType(p.SourceType)
	if err != nil {
		return nil, err
	}

	edges := s.resolver.Resolve(references.Query{
		Target:         target,
		Field:          strings.TrimSpace(p.FieldName),
		Kind:           kind,
		SourceType:     sourceType,
		IncludeContext: p.IncludeContext,
	})
	return &ReferencesResult{Target: target, References: edges, Total: len(edges)}, nil
}

// SearchMembers returns one page of members of an object
func (s *Service) SearchMembers(p MembersParams) (*MembersResult, error) {
	if strings.TrimSpace(p.ObjectName) == "" {
		return nil, apperrors.InvalidRequest("objectName is required")
	}
	if p.MemberKind == "" {
		return nil, apperrors.InvalidRequest("memberKind is required")
	}
	kind, err := store.ParseMemberKind(p.MemberKind)
	if err != nil {
		return nil, apperrors.InvalidRequest("%v", err)
	}
	typ, err := parseType(p.ObjectType)
	if err != nil {
		return nil, err
	}
	limit, err := s.limit(p.Limit)
	if err != nil {
		return nil, err
	}
	if p.Offset < 0 {
		return nil, apperrors.InvalidRequest("offset must not be negative")
	}

	page, res := s.store.SearchMembers(store.MemberQuery{
		Object:  strings.TrimSpace(p.ObjectName),
		Type:    typ,
		Package: p.PackageName,
		Kind:    kind,
		Pattern: strings.TrimSpace(p.Pattern),
		Limit:   limit,
		Offset:  p.Offset,
	})

	result := &MembersResult{
		Status:  res.Status,
		Kind:    kind,
		Members: page.Items,
		Total:   page.Total,
		Offset:  page.Offset,
		Limit:   limit,
		HasMore: page.HasMore,
	}
	switch res.Status {
	case store.LookupFound:
		result.Object = summarize(res.Object)
	case store.LookupAmbiguous:
		result.Candidates = summaries(res.Candidates)
		result.Message = apperrors.Ambiguous("%d objects named %q", len(res.Candidates), p.ObjectName).Error()
	default:
		result.Message = describeMiss(0, p.ObjectName, typ).Error()
	}

	if !boolOr(p.IncludeDetails, true) {
		brief := make([]store.Member, len(result.Members))
		for i, m := range result.Members {
			brief[i] = store.Member{Kind: m.Kind, Name: m.Name, ID: m.ID, Detail: m.Detail, Depth: m.Depth, Parent: m.Parent}
		}
		result.Members = brief
	}
	return result, nil
}

// GetSummary returns a categorized overview of one object
func (s *Service) GetSummary(p SummaryParams) (*SummaryResult, error) {
	name := strings.TrimSpace(p.ObjectName)
	if name == "" {
		return nil, apperrors.InvalidRequest("objectName is required")
	}
	typ, err := parseType(p.ObjectType)
	if err != nil {
		return nil, err
	}

	res := s.store.Lookup(store.LookupQuery{Name: name, Type: typ, Package: p.PackageName})
	switch res.Status {
	case store.LookupNotFound:
		return &SummaryResult{Status: string(res.Status), Message: describeMiss(0, name, typ).Error()}, nil
	case store.LookupAmbiguous:
		return &SummaryResult{
			Status:     string(res.Status),
			Candidates: summaries(res.Candidates),
			Message:    apperrors.Ambiguous("%d objects named %q", len(res.Candidates), name).Error(),
		}, nil
	}

	summary := buildSummary(res.Object)
	edges := s.resolver.Resolve(references.Query{Target: res.Object.Name})
	if len(edges) > 0 {
		summary.References = make(map[string]int)
		for _, e := range edges {
			summary.References[string(e.Kind)]++
		}
	}
	return &SummaryResult{Status: string(res.Status), Summary: summary}, nil
}

// Packages runs a package action
func (s *Service) Packages(ctx context.Context, p PackagesParams) (*PackagesResult, error) {
	action := strings.ToLower(strings.TrimSpace(p.Action))
	switch action {
	case ActionLoad:
		if s.loader == nil {
			return nil, apperrors.InvalidRequest("package loading is not available")
		}
		report, err := s.loader.Load(ctx, packages.LoadRequest{
			Path:         strings.TrimSpace(p.Path),
			AutoDiscover: boolOr(p.AutoDiscover, true),
			ForceReload:  p.ForceReload,
		})
		if err != nil {
			return nil, err
		}
		return &PackagesResult{Action: action, Report: report}, nil
	case ActionList:
		return &PackagesResult{Action: action, Packages: s.store.Packages()}, nil
	case ActionStats:
		stats := s.store.Stats()
		return &PackagesResult{Action: action, Stats: &stats}, nil
	case "":
		return nil, apperrors.InvalidRequest("action is required")
	default:
		return nil, apperrors.InvalidRequest("unknown action %q (want load, list or stats)", p.Action)
	}
}

func (s *Service) limit(limit *int) (int, error) {
	if limit == nil {
		return s.config.DefaultLimit, nil
	}
	if *limit < 1 || *limit > s.config.MaxLimit {
		return 0, apperrors.InvalidRequest("limit must be between 1 and %d", s.config.MaxLimit)
	}
	return *limit, nil
}

func memberLimit(name string, limit *int, def int) (int, error) {
	if limit == nil {
		return def, nil
	}
	if *limit < NoLimit {
		return 0, apperrors.InvalidRequest("%s must be -1 (no limit) or greater", name)
	}
	return *limit, nil
}

func parseType(s string) (model.ObjectType, error) {
	if s == "" {
		return "", nil
	}
	t, err := model.ParseObjectType(s)
	if err != nil {
		return "", apperrors.InvalidRequest("%v", err)
	}
	return t, nil
}

func describeMiss(id int, name string, typ model.ObjectType) *apperrors.Error {
	what := "object"
	if typ != "" {
		what = string(typ)
	}
	switch {
	case id != 0 && name != "":
		return apperrors.NotFound("%s %d %q not found", what, id, name)
	case id != 0:
		return apperrors.NotFound("%s %d not found", what, id)
	default:
		return apperrors.NotFound("%s %q not found", what, name)
	}
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
