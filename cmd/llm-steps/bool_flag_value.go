package llmsteps

import (
	"fmt"
	"strconv"
	"strings"
)

// boolChoiceValue is a bool flag that also accepts yes/no and on/off.
type boolChoiceValue struct {
	value bool
}

func (v *boolChoiceValue) String() string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(v.value)
}

func (v *boolChoiceValue) Set(input string) error {
	parsed, ok := parseBoolChoice(input)
	if !ok {
		return fmt.Errorf("invalid boolean value %q", input)
	}
	v.value = parsed
	return nil
}

func (v *boolChoiceValue) Type() string { return "bool" }

func parseBoolChoice(input string) (bool, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	switch trimmed {
	case "", "true", "t", "1", "yes", "y", "on":
		return true, true
	case "false", "f", "0", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
