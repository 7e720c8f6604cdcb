package diary

import "fmt"

type FailureKind int

const (
	FailureMissingPoster FailureKind = iota
	FailureMissingDate
	FailureMalformedDate
	FailureMissingFilmName
	FailureImageFetch
	FailureImageDecode
	FailureEmptyPalette
)

func (k FailureKind) String() string {
	switch k {
	case FailureMissingPoster:
		return "missing-poster"
	case FailureMissingDate:
		return "missing-date"
	case FailureMalformedDate:
		return "malformed-date"
	case FailureMissingFilmName:
		return "missing-film-name"
	case FailureImageFetch:
		return "image-fetch"
	case FailureImageDecode:
		return "image-decode"
	case FailureEmptyPalette:
		return "empty-palette"
	}
	return fmt.Sprintf("failure(%d)", int(k))
}

// Failure is a recovered, per-item error. Entry-level failures drop the entry,
// image failures leave it with a nil color.
type Failure struct {
	Kind FailureKind
	Page int
	Row  int
	// Ref is whatever the failure was about, a date token or a poster url.
	Ref string
	Err error
}

func (f Failure) Error() string {
	msg := fmt.Sprintf("%s (page %d, row %d)", f.Kind, f.Page, f.Row)
	if f.Ref != "" {
		msg += fmt.Sprintf(" %q", f.Ref)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f Failure) Unwrap() error {
	return f.Err
}

// FailureLog is the ordered record of every recovered failure in a run.
type FailureLog []Failure

// Count returns how many failures of a kind were recorded.
func (l FailureLog) Count(kind FailureKind) int {
	n := 0
	for _, f := range l {
		if f.Kind == kind {
			n++
		}
	}
	return n
}
