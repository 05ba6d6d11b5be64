// # internal/ui/report/sarif.go
package report

import (
	"encoding/json"
	"fmt"

	"pyrefactor/internal/core/errors"
	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/engine/pipeline"
	"pyrefactor/internal/engine/symbols"
)

// SARIF v2.1.0 schema: https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json
const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	RuleParseFailure = "PYR001"
	RuleUnresolved   = "PYR002"
	RuleAmbiguous    = "PYR003"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

var sarifRules = map[string]sarifRule{
	RuleParseFailure: {
		ID:               RuleParseFailure,
		Name:             "ParseFailure",
		ShortDescription: sarifMessage{Text: "The file could not be parsed; renames are refused until it is fixed."},
		DefaultConfig:    sarifRuleDefaultConfig{Level: "error"},
	},
	RuleUnresolved: {
		ID:               RuleUnresolved,
		Name:             "UnresolvedName",
		ShortDescription: sarifMessage{Text: "A name has no visible binding and is not a builtin."},
		DefaultConfig:    sarifRuleDefaultConfig{Level: "note"},
	},
	RuleAmbiguous: {
		ID:               RuleAmbiguous,
		Name:             "AmbiguousReference",
		ShortDescription: sarifMessage{Text: "A reference may bind to more than one definition, for example through a star import."},
		DefaultConfig:    sarifRuleDefaultConfig{Level: "note"},
	},
}

// AnalysisSARIF reports parse failures and unresolved or ambiguous names of
// an analysis run. URIs are the workspace-relative analyzed paths.
func AnalysisSARIF(b *pipeline.Bundle, version string) ([]byte, error) {
	results := make([]sarifResult, 0)
	used := make(map[string]bool)

	for _, f := range b.Failed() {
		loc := fileLocation(f.Path)
		line, _ := errors.ContextValue(f.Err, errors.CtxLine)
		col, _ := errors.ContextValue(f.Err, errors.CtxColumn)
		if l, ok := line.(int); ok {
			c, _ := col.(int)
			loc.PhysicalLocation.Region = &sarifRegion{StartLine: l, StartColumn: c}
		}
		results = append(results, sarifResult{
			RuleID:    RuleParseFailure,
			Level:     "error",
			Message:   sarifMessage{Text: fmt.Sprintf("Parse failure: %v", f.Err)},
			Locations: []sarifLocation{loc},
		})
		used[RuleParseFailure] = true
	}

	db := b.DB()
	for _, r := range db.References() {
		var rule, msg string
		switch {
		case r.Status == symbols.Ambiguous:
			rule, msg = RuleAmbiguous, fmt.Sprintf("%q may refer to more than one definition", r.Name)
		case r.Status == symbols.Unresolved && r.Kind != parser.RefAttribute:
			rule, msg = RuleUnresolved, fmt.Sprintf("%q is not defined", r.Name)
		default:
			continue
		}
		f, ok := db.File(r.File)
		if !ok {
			continue
		}
		loc := fileLocation(f.Path)
		start := parser.LocationOf(f.Content, r.Span.Start)
		loc.PhysicalLocation.Region = &sarifRegion{
			StartLine:   start.Line,
			StartColumn: start.Column,
			EndColumn:   start.Column + r.Span.Len(),
		}
		results = append(results, sarifResult{
			RuleID:    rule,
			Level:     sarifRules[rule].DefaultConfig.Level,
			Message:   sarifMessage{Text: msg},
			Locations: []sarifLocation{loc},
		})
		used[rule] = true
	}

	rules := make([]sarifRule, 0, len(used))
	for _, id := range []string{RuleParseFailure, RuleUnresolved, RuleAmbiguous} {
		if used[id] {
			rules = append(rules, sarifRules[id])
		}
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:    "pyrefactor",
				Version: version,
				Rules:   rules,
			}},
			Results: results,
		}},
	}
	return json.MarshalIndent(report, "", "  ")
}

func fileLocation(path string) sarifLocation {
	return sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: path, URIBaseID: "%SRCROOT%"},
		},
	}
}
