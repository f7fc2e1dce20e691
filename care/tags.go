package care

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strings"
)

// =============================================================================
// TAGS - Closed set of visit labels
// =============================================================================

// Tag is one visit label. Tags are not exclusive; a recert visit can also
// carry HOPE + HUV2 and over-limit.
type Tag uint16

const (
	TagRoutine    Tag = 1 << iota // ordinary cadence visit
	TagRecert                     // inside the recertification window
	TagPRN                        // clinician-initiated, always confirmed
	TagHOPE                       // HOPE assessment visit
	TagHUV1                       // HOPE update visit 1 (days 6-15)
	TagHUV2                       // HOPE update visit 2 (days 16-30)
	TagOverLimit                  // staff already at the daily cap that day
	TagUnassigned                 // patient has no care team; discipline UNASSIGNED
)

var tagNames = []struct {
	tag  Tag
	name string
}{
	{TagRoutine, "routine"},
	{TagRecert, "recert"},
	{TagPRN, "prn"},
	{TagHOPE, "HOPE"},
	{TagHUV1, "HUV1"},
	{TagHUV2, "HUV2"},
	{TagOverLimit, "over-limit"},
	{TagUnassigned, "unassigned"},
}

func (t Tag) String() string {
	for _, tn := range tagNames {
		if tn.tag == t {
			return tn.name
		}
	}
	return fmt.Sprintf("tag(%d)", uint16(t))
}

// ParseTag matches tag names case-insensitively.
func ParseTag(s string) (Tag, error) {
	for _, tn := range tagNames {
		if strings.EqualFold(tn.name, s) {
			return tn.tag, nil
		}
	}
	return 0, fmt.Errorf("%w: tag %q", ErrInvalidValue, s)
}

// TagSet is a set of Tags. The zero value is the empty set.
type TagSet uint16

// Tags builds a set from individual tags.
func Tags(tags ...Tag) TagSet {
	var s TagSet
	for _, t := range tags {
		s |= TagSet(t)
	}
	return s
}

func (s TagSet) Has(t Tag) bool { return s&TagSet(t) != 0 }
func (s TagSet) With(tags ...Tag) TagSet { return s | Tags(tags...) }
func (s TagSet) Without(tags ...Tag) TagSet { return s &^ Tags(tags...) }
func (s TagSet) Union(other TagSet) TagSet { return s | other }
func (s TagSet) Contains(other TagSet) bool { return s&other == other }
func (s TagSet) IsEmpty() bool { return s == 0 }
func (s TagSet) Len() int { return bits.OnesCount16(uint16(s)) }

// Names lists the set in declaration order.
func (s TagSet) Names() []string {
	names := make([]string, 0, s.Len())
	for _, tn := range tagNames {
		if s.Has(tn.tag) {
			names = append(names, tn.name)
		}
	}
	return names
}

func (s TagSet) String() string { return strings.Join(s.Names(), ",") }

// ParseTags builds a set from names, failing on the first unknown one.
func ParseTags(names []string) (TagSet, error) {
	var s TagSet
	for _, n := range names {
		t, err := ParseTag(n)
		if err != nil {
			return 0, err
		}
		s |= TagSet(t)
	}
	return s, nil
}

// MarshalJSON writes the set as an array of names.
func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// UnmarshalJSON reads an array of names; null is the empty set.
func (s *TagSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("tags must be an array of strings: %w", err)
	}
	parsed, err := ParseTags(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
