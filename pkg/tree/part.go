package tree

import "strings"

// Part is a content part embedded in a block row. Implementations are
// TaskPart, ThinkingPart and UnknownPart.
type Part interface {
	// PartType returns the raw type discriminant of the part.
	PartType() string
}

// TaskKind classifies task parts by their type discriminant.
type TaskKind int

const (
	TaskGeneric TaskKind = iota
	TaskWebSearch
	TaskRepoSearch
	TaskDiagnostics
	TaskReadFile
	TaskCoding
)

// String returns a human-readable task kind.
func (k TaskKind) String() string {
	switch k {
	case TaskWebSearch:
		return "web search"
	case TaskRepoSearch:
		return "repository search"
	case TaskDiagnostics:
		return "diagnostics"
	case TaskReadFile:
		return "read file"
	case TaskCoding:
		return "coding"
	default:
		return "task"
	}
}

// TaskPart reports progress of an asynchronous task or tool execution.
type TaskPart struct {
	Type         string
	Kind         TaskKind
	ID           string
	NameActive   string
	NameComplete string
	Finished     bool
	// Steps holds the task's sub-parts as raw objects.
	Steps []map[string]any
	Raw   map[string]any
}

// PartType returns the task type, e.g. "task-search-web-v1".
func (p *TaskPart) PartType() string { return p.Type }

// Name returns the label suited for the current task state.
func (p *TaskPart) Name() string {
	if p.Finished && p.NameComplete != "" {
		return p.NameComplete
	}
	if p.NameActive != "" {
		return p.NameActive
	}
	return p.Kind.String()
}

// ThinkingPart is a reasoning trace.
type ThinkingPart struct {
	Type       string
	Thought    string
	DurationMs float64
	Finished   bool
	Raw        map[string]any
}

// PartType returns the thinking part type.
func (p *ThinkingPart) PartType() string { return p.Type }

// UnknownPart preserves parts with an unrecognized type.
type UnknownPart struct {
	Type string
	Raw  map[string]any
}

// PartType returns the unrecognized type as received.
func (p *UnknownPart) PartType() string { return p.Type }

var taskKinds = map[string]TaskKind{
	"search-web":  TaskWebSearch,
	"search-repo": TaskRepoSearch,
	"diagnostics": TaskDiagnostics,
	"read-file":   TaskReadFile,
	"coding":      TaskCoding,
}

// ParsePart decodes a raw part payload. It never fails: payloads without a
// recognized type become *UnknownPart.
func ParsePart(raw map[string]any) Part {
	typ, _ := raw["type"].(string)
	switch {
	case typ == "thinking" || strings.HasPrefix(typ, "task-thinking-"):
		p := &ThinkingPart{Type: typ, Raw: raw}
		p.Thought, _ = raw["thought"].(string)
		if p.Thought == "" {
			p.Thought, _ = raw["content"].(string)
		}
		p.DurationMs, _ = raw["duration"].(float64)
		p.Finished, _ = raw["finished"].(bool)
		return p
	case strings.HasPrefix(typ, "task-"):
		p := &TaskPart{Type: typ, Kind: taskKind(typ), Raw: raw}
		p.ID, _ = raw["id"].(string)
		p.NameActive, _ = raw["taskNameActive"].(string)
		p.NameComplete, _ = raw["taskNameComplete"].(string)
		p.Finished, _ = raw["finished"].(bool)
		if steps, ok := raw["parts"].([]any); ok {
			for _, s := range steps {
				if m, ok := s.(map[string]any); ok {
					p.Steps = append(p.Steps, m)
				}
			}
		}
		return p
	default:
		return &UnknownPart{Type: typ, Raw: raw}
	}
}

// taskKind maps "task-search-web-v1" style discriminants to a TaskKind.
func taskKind(typ string) TaskKind {
	name := strings.TrimPrefix(typ, "task-")
	if i := strings.LastIndex(name, "-v"); i > 0 {
		name = name[:i]
	}
	if k, ok := taskKinds[name]; ok {
		return k
	}
	return TaskGeneric
}
