package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SurahCount is the number of major divisions.
const SurahCount = 114

// verseCounts holds the number of verses per surah, 1-indexed by position+1.
var verseCounts = [SurahCount]int{
	7, 286, 200, 176, 120, 165, 206, 75, 129, 109,
	123, 111, 43, 52, 99, 128, 111, 110, 98, 135,
	112, 78, 118, 64, 77, 227, 93, 88, 69, 60,
	34, 30, 73, 54, 45, 83, 182, 88, 75, 85,
	54, 53, 89, 59, 37, 35, 38, 29, 18, 45,
	60, 49, 62, 55, 78, 96, 29, 22, 24, 13,
	14, 11, 11, 18, 12, 12, 30, 52, 52, 44,
	28, 28, 20, 56, 40, 31, 50, 40, 46, 42,
	29, 19, 36, 25, 22, 17, 19, 26, 30, 20,
	15, 21, 11, 8, 8, 19, 5, 8, 8, 11,
	11, 8, 3, 9, 5, 4, 7, 3, 6, 3,
	5, 4, 5, 6,
}

// VerseCount returns the number of verses in a surah, or 0 when major is out of range.
func VerseCount(major int) int {
	if major < 1 || major > SurahCount {
		return 0
	}
	return verseCounts[major-1]
}

// ContentUnitRef addresses one verse or an inclusive verse range of a surah.
type ContentUnitRef struct {
	Major      int `json:"major"`
	MinorStart int `json:"minor_start"`
	MinorEnd   int `json:"minor_end"`
}

// VerseRef builds a single-verse reference.
func VerseRef(major, minor int) ContentUnitRef {
	return ContentUnitRef{Major: major, MinorStart: minor, MinorEnd: minor}
}

var refPattern = regexp.MustCompile(`^(\d{1,3}):(\d{1,3})(?:-(\d{1,3}))?$`)

// ParseRef parses "<major>:<minor>" or "<major>:<minorStart>-<minorEnd>".
func ParseRef(s string) (ContentUnitRef, error) {
	m := refPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ContentUnitRef{}, fmt.Errorf("%w: %q, use a form like 1:1 or 1:1-7", ErrInvalidReference, s)
	}

	major, _ := strconv.Atoi(m[1])
	start, _ := strconv.Atoi(m[2])
	end := start
	if m[3] != "" {
		end, _ = strconv.Atoi(m[3])
	}

	ref := ContentUnitRef{Major: major, MinorStart: start, MinorEnd: end}
	if err := ref.Validate(); err != nil {
		return ContentUnitRef{}, err
	}
	return ref, nil
}

// Validate checks the reference against the verse-count table.
func (r ContentUnitRef) Validate() error {
	count := VerseCount(r.Major)
	if count == 0 {
		return fmt.Errorf("%w: surah must be between 1 and %d, got %d", ErrInvalidReference, SurahCount, r.Major)
	}
	if r.MinorStart < 1 {
		return fmt.Errorf("%w: verse must be positive, got %d", ErrInvalidReference, r.MinorStart)
	}
	if r.MinorEnd < r.MinorStart {
		return fmt.Errorf("%w: end verse %d is before start verse %d", ErrInvalidReference, r.MinorEnd, r.MinorStart)
	}
	if r.MinorEnd > count {
		return fmt.Errorf("%w: surah %d has %d verses, got %d", ErrInvalidReference, r.Major, count, r.MinorEnd)
	}
	return nil
}

// IsRange reports whether the reference spans more than one verse.
func (r ContentUnitRef) IsRange() bool {
	return r.MinorEnd > r.MinorStart
}

// Verses expands the reference into its single-verse references.
func (r ContentUnitRef) Verses() []ContentUnitRef {
	out := make([]ContentUnitRef, 0, r.MinorEnd-r.MinorStart+1)
	for v := r.MinorStart; v <= r.MinorEnd; v++ {
		out = append(out, VerseRef(r.Major, v))
	}
	return out
}

// Key renders the verse key used by the text APIs ("2:255").
// For ranges it is the key of the first verse.
func (r ContentUnitRef) Key() string {
	return fmt.Sprintf("%d:%d", r.Major, r.MinorStart)
}

func (r ContentUnitRef) String() string {
	if r.IsRange() {
		return fmt.Sprintf("%d:%d-%d", r.Major, r.MinorStart, r.MinorEnd)
	}
	return r.Key()
}

// Less orders references naturally: by surah, then by first verse.
func (r ContentUnitRef) Less(o ContentUnitRef) bool {
	if r.Major != o.Major {
		return r.Major < o.Major
	}
	return r.MinorStart < o.MinorStart
}

// Next returns the verse after the last verse of r, crossing into the next surah.
// ok is false after the final verse of the last surah.
func (r ContentUnitRef) Next() (ContentUnitRef, bool) {
	if r.MinorEnd < VerseCount(r.Major) {
		return VerseRef(r.Major, r.MinorEnd+1), true
	}
	if r.Major < SurahCount {
		return VerseRef(r.Major+1, 1), true
	}
	return ContentUnitRef{}, false
}
