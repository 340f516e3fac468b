package services

// TitleCardRule decides when the opening-phrase card precedes a unit.
// Surah 1 carries the phrase as its own first verse and surah 9 omits it.
type TitleCardRule struct {
	Exceptions map[int]struct{}
}

// DefaultTitleCardRule returns the rule with the conventional exceptions.
func DefaultTitleCardRule() TitleCardRule {
	return TitleCardRule{
		Exceptions: map[int]struct{}{1: {}, 9: {}},
	}
}

// ShouldInsert reports whether a title card precedes the unit starting at
// minor within major.
func (r TitleCardRule) ShouldInsert(major, minor int) bool {
	if minor != 1 {
		return false
	}
	_, skip := r.Exceptions[major]
	return !skip
}

// TitleCardText is the phrase rendered on the card.
const TitleCardText = "بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ"
