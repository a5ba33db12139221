//go:build pinyindebug

package lexicon

// StrictInvariants makes index corruption panic instead of being logged and skipped.
const StrictInvariants = true
