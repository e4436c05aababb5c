package editor

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"

	"github.com/amonks/ledger/ledger"
	internalstrings "github.com/amonks/ledger/internal/strings"
)

// ItemData represents the data used to render the TOML template.
type ItemData struct {
	// IsUpdate is true when editing an existing item.
	IsUpdate bool
	// IsBug selects the bug schema, which has no task-only fields.
	IsBug bool
	// Ref names the item (only for updates).
	Ref string

	Status   string
	Priority string
	Domain   []string
	Layer    []string
	MVP      bool
	Deps     []string
	SpecRefs []string
	ImplRefs []string

	Description string
}

// DefaultCreateData returns ItemData with default values for a new item.
func DefaultCreateData(bug bool) ItemData {
	return ItemData{
		IsBug:    bug,
		Status:   string(ledger.StatusOpen),
		Priority: string(ledger.PriorityMedium),
	}
}

// DataFromItem creates ItemData from an existing item for editing.
func DataFromItem(item ledger.Item) ItemData {
	data := ItemData{
		IsUpdate:    true,
		Ref:         item.Ref().String(),
		Status:      string(item.ItemStatus()),
		Priority:    string(item.ItemPriority()),
		Deps:        ledger.RefStrings(item.Dependencies()),
		Description: item.ItemDescription(),
	}
	task, ok := item.(*ledger.Task)
	if !ok {
		data.IsBug = true
		return data
	}
	data.Domain = task.Domain
	data.Layer = task.Layer
	data.MVP = task.MVP
	data.SpecRefs = task.SpecRefs
	data.ImplRefs = task.ImplRefs
	return data
}

var itemTemplate = template.Must(template.New("item").Funcs(template.FuncMap{
	"list": func(values []string) string {
		quoted := make([]string, len(values))
		for i, value := range values {
			quoted[i] = strconv.Quote(value)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	},
	"statuses": func() string {
		return strings.Join(statusNames(), ", ")
	},
}).Parse(`{{- if .IsUpdate }}# {{ .Ref }}
{{ end -}}
status = {{ printf "%q" .Status }} # {{ statuses }}
priority = {{ printf "%q" .Priority }} # high, medium, low
{{- if not .IsBug }}
domain = {{ list .Domain }}
layer = {{ list .Layer }}
mvp = {{ .MVP }}
{{- end }}
deps = {{ list .Deps }} # e.g. "#3", "b1"
{{- if not .IsBug }}
spec = {{ list .SpecRefs }}
impl = {{ list .ImplRefs }}
{{- end }}
---
{{ .Description }}
`))

// RenderItemTOML renders the item data as a TOML string for editing.
func RenderItemTOML(data ItemData) (string, error) {
	var buf bytes.Buffer
	if err := itemTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}

// ParsedItem represents the parsed result from the TOML editor output.
type ParsedItem struct {
	Status   ledger.Status   `toml:"-"`
	Priority ledger.Priority `toml:"-"`

	RawStatus   string   `toml:"status"`
	RawPriority string   `toml:"priority"`
	Domain      []string `toml:"domain"`
	Layer       []string `toml:"layer"`
	MVP         bool     `toml:"mvp"`
	Deps        []string `toml:"deps"`
	SpecRefs    []string `toml:"spec"`
	ImplRefs    []string `toml:"impl"`

	Description string `toml:"-"`
}

var taskOnlyKeys = []string{"domain", "layer", "mvp", "spec", "impl"}

// ParseItemTOML parses the TOML content from the editor.
func ParseItemTOML(content string, bug bool) (*ParsedItem, error) {
	frontmatter, body := splitFrontmatter(content)

	var parsed ParsedItem
	meta, err := toml.Decode(frontmatter, &parsed)
	if err != nil {
		return nil, fmt.Errorf("parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %q", ledger.ErrInvalidField, undecoded[0].String())
	}
	if bug {
		for _, key := range taskOnlyKeys {
			if meta.IsDefined(key) {
				return nil, fmt.Errorf("%w: bugs have no %s field", ledger.ErrInvalidField, key)
			}
		}
	}

	parsed.Status = ledger.StatusOpen
	if meta.IsDefined("status") {
		status, err := ledger.ParseStatus(parsed.RawStatus)
		if err != nil {
			return nil, err
		}
		parsed.Status = status
	}
	parsed.Priority = ledger.PriorityMedium
	if meta.IsDefined("priority") {
		priority, err := ledger.ParsePriority(parsed.RawPriority)
		if err != nil {
			return nil, err
		}
		parsed.Priority = priority
	}

	parsed.Description = internalstrings.NormalizeWhitespace(body)
	if parsed.Description == "" {
		return nil, ledger.ErrEmptyDescription
	}

	return &parsed, nil
}

func splitFrontmatter(content string) (string, string) {
	content = internalstrings.TrimLeadingNewlines(internalstrings.NormalizeNewlines(content))
	if content == "" {
		return "", ""
	}

	lines := strings.Split(content, "\n")
	separatorIndex := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "---" {
			separatorIndex = i
			break
		}
	}
	if separatorIndex == -1 {
		return content, ""
	}

	frontmatter := strings.Join(lines[:separatorIndex], "\n")
	body := strings.Join(lines[separatorIndex+1:], "\n")
	return frontmatter, body
}

func createItemTempFile() (*os.File, error) {
	return os.CreateTemp("", "ldg-item-*.md")
}

func statusNames() []string {
	var names []string
	for _, status := range ledger.ValidStatuses() {
		if !status.IsDerived() {
			names = append(names, string(status))
		}
	}
	return names
}

// EditItem opens the editor for an item and returns the parsed result.
func EditItem(existing ledger.Item) (*ParsedItem, error) {
	return EditItemWithData(DataFromItem(existing))
}

// EditItemWithData opens the editor with pre-populated data and returns the parsed result.
func EditItemWithData(data ItemData) (*ParsedItem, error) {
	content, err := RenderItemTOML(data)
	if err != nil {
		return nil, err
	}

	tmpfile, err := createItemTempFile()
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpfile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpfile.WriteString(content); err != nil {
		tmpfile.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpfile.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	if err := Edit(tmpPath); err != nil {
		return nil, err
	}

	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("read edited file: %w", err)
	}

	return ParseItemTOML(string(edited), data.IsBug)
}

// ToNewItem converts a ParsedItem to ledger.NewItem.
func (p *ParsedItem) ToNewItem(bug bool) ledger.NewItem {
	return ledger.NewItem{
		Bug:         bug,
		Status:      p.Status,
		Domain:      p.Domain,
		Layer:       p.Layer,
		Description: p.Description,
		Priority:    p.Priority,
		MVP:         p.MVP,
		Deps:        p.Deps,
		SpecRefs:    p.SpecRefs,
		ImplRefs:    p.ImplRefs,
	}
}

// ToChanges converts a ParsedItem to the ledger.Changes that turn existing
// into it. Unchanged fields are left nil so a claimed item keeps its
// derived status.
func (p *ParsedItem) ToChanges(existing ledger.Item) ledger.Changes {
	var changes ledger.Changes
	if p.Status != existing.ItemStatus() {
		status := p.Status
		changes.Status = &status
	}
	if p.Priority != existing.ItemPriority() {
		priority := p.Priority
		changes.Priority = &priority
	}
	if p.Description != existing.ItemDescription() {
		description := p.Description
		changes.Description = &description
	}
	if deps := ledger.RefStrings(existing.Dependencies()); !slices.Equal(p.Deps, deps) {
		replaced := append([]string{}, p.Deps...)
		changes.Deps = &replaced
	}

	task, ok := existing.(*ledger.Task)
	if !ok {
		return changes
	}
	changes.Domain = changedList(p.Domain, task.Domain)
	changes.Layer = changedList(p.Layer, task.Layer)
	changes.SpecRefs = changedList(p.SpecRefs, task.SpecRefs)
	changes.ImplRefs = changedList(p.ImplRefs, task.ImplRefs)
	if p.MVP != task.MVP {
		mvp := p.MVP
		changes.MVP = &mvp
	}
	return changes
}

func changedList(edited, current []string) *[]string {
	if slices.Equal(edited, current) {
		return nil
	}
	replaced := append([]string{}, edited...)
	return &replaced
}
