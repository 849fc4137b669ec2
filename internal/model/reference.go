package model

import (
	"fmt"
	"strings"
)

// RelationKind classifies a reference edge
type RelationKind string

const (
	RelationExtends       RelationKind = "extends"
	RelationSourceTable   RelationKind = "source_table"
	RelationTableRelation RelationKind = "table_relation"
	RelationFieldUsage    RelationKind = "field_usage"
	RelationTableUsage    RelationKind = "table_usage"
	RelationVariable      RelationKind = "variable"
	RelationParameter     RelationKind = "parameter"
	RelationReturnType    RelationKind = "return_type"
)

// RelationKinds lists every relation kind
var RelationKinds = []RelationKind{
	RelationExtends,
	RelationSourceTable,
	RelationTableRelation,
	RelationFieldUsage,
	RelationTableUsage,
	RelationVariable,
	RelationParameter,
	RelationReturnType,
}

// ParseRelationKind resolves a relation kind case-insensitively
func ParseRelationKind(s string) (RelationKind, error) {
	for _, k := range RelationKinds {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown relation kind: %q", s)
}

// Edge is a derived relationship from a source object (and optionally one of
// its members) to a target object or field.
type Edge struct {
	Source        string       `json:"source"`
	SourceType    ObjectType   `json:"sourceType"`
	SourceID      int          `json:"sourceId,omitempty"`
	SourcePackage string       `json:"sourcePackage"`
	SourceMember  string       `json:"sourceMember,omitempty"`
	Kind          RelationKind `json:"kind"`
	Target        string       `json:"target"`
	TargetField   string       `json:"targetField,omitempty"`
	Context       string       `json:"context,omitempty"`
}
