package document

import (
	"fmt"
	"strings"
)

// ValidationError reports the required block(s) a document does not carry.
// It is a per-record condition: the batch counts it and moves on.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document missing required blocks: %s", strings.Join(e.Missing, ", "))
}

// Validate enforces the minimum structural guarantee: the protocol section
// must be present and must expose both the identification and status
// blocks. Presence is what is checked; a present-but-empty block is
// acceptable and maps to placeholder values downstream.
func Validate(doc Document) error {
	protocol, ok := Get(doc, KeyProtocolSection, nil).(map[string]any)
	if !ok {
		return &ValidationError{Missing: []string{KeyIdentificationModule, KeyStatusModule}}
	}

	var missing []string
	for _, key := range []string{KeyIdentificationModule, KeyStatusModule} {
		if _, present := protocol[key]; !present {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}
