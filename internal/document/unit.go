package document

// UnitStatus 翻译单元状态
type UnitStatus int

const (
	UnitPending UnitStatus = iota
	UnitTranslated
	UnitFailed
)

func (s UnitStatus) String() string {
	switch s {
	case UnitPending:
		return "pending"
	case UnitTranslated:
		return "translated"
	case UnitFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Unit 翻译单元：一个段落的文本及其格式
//
// Source, Format and Location are fixed at extraction. The outcome is
// recorded exactly once through Accept or Fail.
type Unit struct {
	ID       int
	Source   string
	Format   Formatting
	Location Location

	translation string
	status      UnitStatus
	err         error
}

// Status returns the unit's current status.
func (u *Unit) Status() UnitStatus { return u.status }

// Translation returns the accepted translation, empty unless translated.
func (u *Unit) Translation() string { return u.translation }

// Err returns the failure reason of a failed unit.
func (u *Unit) Err() error { return u.err }

// Accept records the translation. It returns false if the unit already has
// an outcome or text is empty.
func (u *Unit) Accept(text string) bool {
	if u.status != UnitPending || text == "" {
		return false
	}
	u.translation = text
	u.status = UnitTranslated
	return true
}

// Fail marks the unit as failed. It returns false if the unit already has
// an outcome.
func (u *Unit) Fail(err error) bool {
	if u.status != UnitPending {
		return false
	}
	u.err = err
	u.status = UnitFailed
	return true
}

// Output returns the text to write back: the translation, or the source
// text when the unit was not translated.
func (u *Unit) Output() string {
	if u.status == UnitTranslated {
		return u.translation
	}
	return u.Source
}
