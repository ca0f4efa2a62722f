package highlight

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/matsen/btreeplay/internal/catalog"
)

// ErrUnknownTag is returned by ParseTag for names outside the vocabulary.
var ErrUnknownTag = errors.New("unknown event tag")

// Tag is one kind of event a step can describe.
type Tag uint8

const (
	TagInsert Tag = iota
	TagDelete
	TagMerge
	TagBorrow
	TagReplace
	TagSplit
	TagRootShrink
	TagBatch
	TagOverflow
	TagMedian
	TagRange
	TagGhost
	TagFound

	numTags
)

var tagNames = [numTags]string{
	TagInsert:     "insert",
	TagDelete:     "delete",
	TagMerge:      "merge",
	TagBorrow:     "borrow",
	TagReplace:    "replace",
	TagSplit:      "split",
	TagRootShrink: "root-shrink",
	TagBatch:      "batch",
	TagOverflow:   "overflow",
	TagMedian:     "median",
	TagRange:      "range",
	TagGhost:      "ghost",
	TagFound:      "found",
}

// keywords maps each tag to the lower-cased phrases that announce it in a
// trace message. Vietnamese and English wordings from every server revision
// share one table.
var keywords = [numTags][]string{
	TagInsert:     {"chèn", "insert"},
	TagDelete:     {"xóa", "xoá", "delete"},
	TagMerge:      {"gộp", "merge"},
	TagBorrow:     {"mượn", "borrow"},
	TagReplace:    {"thay thế", "replace"},
	TagSplit:      {"tách", "split"},
	TagRootShrink: {"hạ gốc", "giảm chiều cao", "height reduction", "root shrink"},
	TagBatch:      {"batch", "quét đĩa", "disk scan", "disk-scan"},
	TagOverflow:   {"tràn", "overflow"},
	TagMedian:     {"trung vị", "median"},
	TagRange:      {"range", "khoảng"},
	TagGhost:      {"ghost", "bản sao", "sao chép", "copy"},
	TagFound:      {"tìm thấy", "found"},
}

func (t Tag) String() string {
	if t >= numTags {
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
	return tagNames[t]
}

// ParseTag resolves a structured event name.
func ParseTag(name string) (Tag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range tagNames {
		if n == name {
			return Tag(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTag, name)
}

// Tags is a set of Tag values.
type Tags uint16

// TagsOf builds a set from individual tags.
func TagsOf(tags ...Tag) Tags {
	var s Tags
	for _, t := range tags {
		s = s.With(t)
	}
	return s
}

// With returns the set with t added.
func (s Tags) With(t Tag) Tags {
	return s | 1<<t
}

// Has reports whether t is in the set.
func (s Tags) Has(t Tag) bool {
	return s&(1<<t) != 0
}

// List returns the members of the set in declaration order.
func (s Tags) List() []Tag {
	var out []Tag
	for t := Tag(0); t < numTags; t++ {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s Tags) String() string {
	list := s.List()
	if len(list) == 0 {
		return "none"
	}
	names := make([]string, len(list))
	for i, t := range list {
		names[i] = t.String()
	}
	return strings.Join(names, "|")
}

// Structural reports whether the set contains an event that reshapes the
// tree or concludes a search. Playback lingers on such steps.
func (s Tags) Structural() bool {
	for _, t := range s.List() {
		switch t {
		case TagMerge, TagSplit, TagBorrow, TagReplace, TagRootShrink,
			TagBatch, TagOverflow, TagMedian, TagFound:
			return true
		case TagInsert, TagDelete, TagRange, TagGhost:
		}
	}
	return false
}

// Detect scans a free-text message for known keywords. Matching is
// case-insensitive substring search, so "not found" still yields TagFound.
func Detect(message string) Tags {
	msg := strings.ToLower(message)
	var s Tags
	for t, words := range keywords {
		for _, w := range words {
			if strings.Contains(msg, w) {
				s = s.With(Tag(t))
				break
			}
		}
	}
	return s
}

// TagsFor returns the event tags of a step. Structured events win over the
// message; unknown event names are ignored.
func TagsFor(step catalog.Step) Tags {
	if len(step.Events) == 0 {
		return Detect(step.Message)
	}
	var s Tags
	for _, name := range step.Events {
		if t, err := ParseTag(name); err == nil {
			s = s.With(t)
		}
	}
	return s
}

// Mode is the set of flags the classifier resolves roles from.
type Mode struct {
	Insert   bool
	Delete   bool
	Batch    bool
	Overflow bool
	Median   bool
	Range    bool
	Ghost    bool
	Found    bool
}

// ModeOf derives classifier flags from a tag set. Merge, borrow, replace and
// root shrinking only happen while deleting, so they imply delete mode.
func ModeOf(s Tags) Mode {
	var m Mode
	for _, t := range s.List() {
		switch t {
		case TagInsert:
			m.Insert = true
		case TagDelete, TagMerge, TagBorrow, TagReplace, TagRootShrink:
			m.Delete = true
		case TagBatch:
			m.Batch = true
		case TagOverflow:
			m.Overflow = true
		case TagMedian:
			m.Median = true
		case TagRange:
			m.Range = true
		case TagGhost:
			m.Ghost = true
		case TagFound:
			m.Found = true
		case TagSplit:
		}
	}
	return m
}

var subjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`<code>\s*([^<]+?)\s*</code>`),
	regexp.MustCompile("`([^`]+)`"),
}

// Subject returns the first key id embedded in a message between <code> tags
// or backticks, or "" when there is none.
func Subject(message string) string {
	for _, re := range subjectPatterns {
		if m := re.FindStringSubmatch(message); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
