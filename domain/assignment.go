package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/gavinmorrow/hunter-extension-sub000/pkg/mesh"
)

// Kind tags an entity as host-authored assignment or user-authored task. It is decided
// once by the normalizer and never re-inferred from the entity's shape.
type Kind int

const (
	KindAssignment Kind = iota
	KindTask
)

func (k Kind) String() string {
	if k == KindTask {
		return "task"
	}
	return "assignment"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "assignment":
		*k = KindAssignment
	case "task":
		*k = KindTask
	default:
		return fmt.Errorf("unknown kind %q", b)
	}
	return nil
}

// SubmissionMethod describes how work is handed in, known once details are fetched.
type SubmissionMethod string

const (
	SubmissionDropbox    SubmissionMethod = "bbDropbox"
	SubmissionTurnitin   SubmissionMethod = "turnitin"
	SubmissionUnknownLTI SubmissionMethod = "unknownLti"
)

// Class is the course section an entity belongs to.
type Class struct {
	Name string `json:"name"`
	ID   *int64 `json:"id"`
	Link string `json:"link"`
}

// Attachment is a downloadable file or link attached to an assignment.
type Attachment struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Expired bool   `json:"expired"`
}

// Assignment is the canonical calendar entity for both assignments and tasks.
//
// Description, SubmissionMethod and Attachments are filled lazily: nil means not fetched.
// Description holds trusted HTML from the host and is rendered verbatim.
type Assignment struct {
	ID               int64             `json:"id,omitempty"`
	Kind             Kind              `json:"kind"`
	Title            string            `json:"title"`
	Link             *string           `json:"link"`
	Description      *string           `json:"description"`
	Status           Status            `json:"status"`
	DueDate          time.Time         `json:"dueDate"`
	AssignedDate     time.Time         `json:"assignedDate"`
	MaxPoints        *float64          `json:"maxPoints"`
	IsExtraCredit    bool              `json:"isExtraCredit"`
	Class            *Class            `json:"class"`
	Type             string            `json:"type"`
	Color            string            `json:"color"`
	SubmissionMethod *SubmissionMethod `json:"submissionMethod"`
	Attachments      []Attachment      `json:"attachments"`
}

// IsTask reports whether the entity is a user-authored task.
func (a Assignment) IsTask() bool { return a.Kind == KindTask }

// IsMajor reports whether the assignment type is a major grade category.
func (a Assignment) IsMajor() bool { return strings.Contains(a.Type, "Major") }

// Described reports whether lazy details have been fetched.
func (a Assignment) Described() bool { return a.Description != nil }

// Validate checks the entity invariants.
func (a Assignment) Validate() error {
	if !a.Status.Valid() {
		return NewError(ErrCodeInvalid, fmt.Sprintf("entity %d: unknown status %q", a.ID, a.Status))
	}
	if !a.IsTask() {
		return nil
	}
	switch {
	case a.MaxPoints != nil:
		return NewError(ErrCodeInvalid, fmt.Sprintf("task %d has max points", a.ID))
	case a.Link != nil:
		return NewError(ErrCodeInvalid, fmt.Sprintf("task %d has a link", a.ID))
	case a.Class != nil && a.Class.ID == nil:
		return NewError(ErrCodeInvalid, fmt.Sprintf("task %d has a class without id", a.ID))
	case !a.Status.allowedForTask():
		return NewError(ErrCodeInvalid, fmt.Sprintf("task %d cannot be %q", a.ID, a.Status))
	}
	return nil
}

// Fields converts the entity into its generic map form. JSON nulls are dropped so the map
// only carries fields this snapshot actually specifies.
func (a Assignment) Fields() map[string]any {
	raw, err := json.Marshal(a)
	if err != nil {
		// Assignment only holds JSON-safe values.
		panic(fmt.Sprintf("domain: marshal assignment: %v", err))
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		panic(fmt.Sprintf("domain: unmarshal assignment: %v", err))
	}
	return dropNulls(fields)
}

// FromFields rebuilds an entity from its generic map form, rejecting unknown keys.
func FromFields(fields map[string]any) (Assignment, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return Assignment{}, WrapError(ErrCodeInvalid, "encode fields", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var a Assignment
	if err := dec.Decode(&a); err != nil {
		return Assignment{}, WrapError(ErrCodeInvalid, "decode fields", err)
	}
	return a, nil
}

// Clone returns a deep copy.
func (a Assignment) Clone() Assignment {
	out := a
	out.Link = clonePtr(a.Link)
	out.Description = clonePtr(a.Description)
	out.MaxPoints = clonePtr(a.MaxPoints)
	out.SubmissionMethod = clonePtr(a.SubmissionMethod)
	if a.Class != nil {
		c := *a.Class
		c.ID = clonePtr(a.Class.ID)
		out.Class = &c
	}
	if a.Attachments != nil {
		out.Attachments = append([]Attachment{}, a.Attachments...)
	}
	return out
}

// Equal compares two entities by value.
func Equal(a, b Assignment) bool {
	return reflect.DeepEqual(a.Fields(), b.Fields())
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func dropNulls(m map[string]any) map[string]any {
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			delete(m, k)
		case map[string]any:
			m[k] = dropNulls(t)
		}
	}
	return m
}

// Patch carries changed fields keyed by their JSON name. A nil Patch is a delete intent.
type Patch map[string]any

// Has reports whether the patch sets key.
func (p Patch) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Status returns the status carried by the patch, if any.
func (p Patch) Status() (Status, bool, error) {
	v, ok := p["status"]
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", true, NewError(ErrCodeInvalid, fmt.Sprintf("status must be a string, got %T", v))
	}
	st, err := ParseStatus(s)
	return st, true, err
}

var lazyFields = []string{"description", "submissionMethod", "attachments"}

// Diff computes the patch turning a into b (see mesh.Diff for the key asymmetry).
func Diff(a, b Assignment) Patch {
	return Patch(mesh.Diff(a.Fields(), b.Fields()))
}

// ApplyPatch overlays p onto a copy of a. Kind never changes, and lazily fetched fields
// that are already populated are never cleared by a patch. A patch carrying a different
// id is rejected with ErrImmutableField.
func ApplyPatch(a Assignment, p Patch) (Assignment, error) {
	if p == nil {
		return a.Clone(), nil
	}
	if v, ok := p["id"]; ok && !sameID(v, a.ID) {
		return Assignment{}, WrapError(ErrCodeInvalid, fmt.Sprintf("patch id %v on entity %d", v, a.ID), ErrImmutableField)
	}
	fields := a.Fields()
	clean := make(map[string]any, len(p))
	for k, v := range p {
		clean[k] = v
	}
	for _, key := range lazyFields {
		if v, ok := clean[key]; ok && v == nil {
			if _, populated := fields[key]; populated {
				delete(clean, key)
			}
		}
	}
	delete(clean, "kind")
	delete(clean, "id")

	out, err := FromFields(mesh.ApplyPatch(fields, clean))
	if err != nil {
		return Assignment{}, err
	}
	out.ID = a.ID
	out.Kind = a.Kind
	if err := out.Validate(); err != nil {
		return Assignment{}, err
	}
	return out, nil
}

func sameID(v any, id int64) bool {
	switch n := v.(type) {
	case int:
		return int64(n) == id
	case int64:
		return n == id
	case float64:
		return n == float64(id)
	case json.Number:
		i, err := n.Int64()
		return err == nil && i == id
	}
	return false
}
