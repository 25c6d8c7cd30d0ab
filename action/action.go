package action

import "errors"

var (
	// ErrNoRunner means the target accessory does not take actions
	ErrNoRunner = errors.New("accessory does not have an action runner")
	// ErrUnknownVerb means the runner has nothing called Verb
	ErrUnknownVerb = errors.New("unknown verb")
	// ErrBadValue means Value could not be parsed for Verb
	ErrBadValue = errors.New("bad value")
)

// Action is the action type... helpful, I know
type Action struct {
	TargetPlatform string
	TargetDevice   string // IP or name depending on platform
	Verb           string // per-platform specific, for Tailwind the number key
	Value          string // per-platform specific
}
