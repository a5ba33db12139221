package lexicon

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// ErrCorrupt marks a structural invariant violation inside the index.
var ErrCorrupt = errors.New("lexicon index corruption")

// invariantFailed panics in pinyindebug builds and logs otherwise; callers skip
// the offending entry after it returns.
func invariantFailed(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if StrictInvariants {
		panic(fmt.Sprintf("%v: %s", ErrCorrupt, msg))
	}
	log.Errorf("%v: %s", ErrCorrupt, msg)
}
