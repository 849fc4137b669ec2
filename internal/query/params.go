package query

import (
	"github.com/alsym/alsym/internal/model"
	"github.com/alsym/alsym/internal/packages"
	"github.com/alsym/alsym/internal/store"
)

// SearchParams are the parameters of the search operation
type SearchParams struct {
	Pattern           string `json:"pattern,omitempty"`
	ObjectType        string `json:"objectType,omitempty"`
	PackageName       string `json:"packageName,omitempty"`
	Domain            string `json:"domain,omitempty"`
	IncludeFields     bool   `json:"includeFields,omitempty"`
	IncludeProcedures bool   `json:"includeProcedures,omitempty"`
	Limit             *int   `json:"limit,omitempty"`
	Offset            int    `json:"offset,omitempty"`
	SummaryMode       *bool  `json:"summaryMode,omitempty"`
}

// SearchResult is one page of objects
type SearchResult struct {
	Objects []*ObjectView `json:"objects"`
	Total   int           `json:"total"`
	Offset  int           `json:"offset"`
	Limit   int           `json:"limit"`
	HasMore bool          `json:"hasMore"`
}

// DefinitionParams are the parameters of the getDefinition operation
type DefinitionParams struct {
	ObjectID          int    `json:"objectId,omitempty"`
	ObjectName        string `json:"objectName,omitempty"`
	ObjectType        string `json:"objectType,omitempty"`
	PackageName       string `json:"packageName,omitempty"`
	IncludeFields     *bool  `json:"includeFields,omitempty"`
	IncludeProcedures *bool  `json:"includeProcedures,omitempty"`
	SummaryMode       bool   `json:"summaryMode,omitempty"`
	FieldLimit        *int   `json:"fieldLimit,omitempty"`
	ProcedureLimit    *int   `json:"procedureLimit,omitempty"`
}

// DefinitionResult carries the object, or the candidates of an ambiguous
// lookup, or a not-found message
type DefinitionResult struct {
	Status     store.LookupStatus `json:"status"`
	Object     *ObjectView        `json:"object,omitempty"`
	Candidates []*ObjectView      `json:"candidates,omitempty"`
	Message    string             `json:"message,omitempty"`
}

// ReferencesParams are the parameters of the findReferences operation
type ReferencesParams struct {
	TargetName     string `json:"targetName"`
	FieldName      string `json:"fieldName,omitempty"`
	RelationKind   string `json:"relationKind,omitempty"`
	SourceType     string `json:"sourceType,omitempty"`
	IncludeContext bool   `json:"includeContext,omitempty"`
}

// ReferencesResult lists the edges pointing at the target
type ReferencesResult struct {
	Target     string       `json:"target"`
	References []model.Edge `json:"references"`
	Total      int          `json:"total"`
}

// MembersParams are the parameters of the searchMembers operation
type MembersParams struct {
	ObjectName     string `json:"objectName"`
	ObjectType     string `json:"objectType,omitempty"`
	PackageName    string `json:"packageName,omitempty"`
	MemberKind     string `json:"memberKind"`
	Pattern        string `json:"pattern,omitempty"`
	Limit          *int   `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
	IncludeDetails *bool  `json:"includeDetails,omitempty"`
}

// MembersResult is one page of members of a resolved object
type MembersResult struct {
	Status     store.LookupStatus `json:"status"`
	Object     *ObjectView        `json:"object,omitempty"`
	Candidates []*ObjectView      `json:"candidates,omitempty"`
	Message    string             `json:"message,omitempty"`
	Kind       store.MemberKind   `json:"kind"`
	Members    []store.Member     `json:"members"`
	Total      int                `json:"total"`
	Offset     int                `json:"offset"`
	Limit      int                `json:"limit"`
	HasMore    bool               `json:"hasMore"`
}

// SummaryParams are the parameters of the getSummary operation
type SummaryParams struct {
	ObjectName  string `json:"objectName"`
	ObjectType  string `json:"objectType,omitempty"`
	PackageName string `json:"packageName,omitempty"`
}

// PackagesParams are the parameters of the packages operation
type PackagesParams struct {
	Action       string `json:"action"`
	Path         string `json:"path,omitempty"`
	AutoDiscover *bool  `json:"autoDiscover,omitempty"`
	ForceReload  bool   `json:"forceReload,omitempty"`
}

// PackagesResult carries the outcome of one package action
type PackagesResult struct {
	Action   string              `json:"action"`
	Report   *packages.Report    `json:"report,omitempty"`
	Packages []store.PackageInfo `json:"packages,omitempty"`
	Stats    *store.Stats        `json:"stats,omitempty"`
}

// Package actions
const (
	ActionLoad  = "load"
	ActionList  = "list"
	ActionStats = "stats"
)
