// Package normalize turns raw platform log events into uniform records
// ready for bulk indexing. Classification picks one sub-parser per
// message; the assembler merges the sub-parser's output with the stream
// context and routes the record to a month-bucket index.
package normalize

import (
	"strings"
)

// Class identifies which sub-parser applies to a message.
type Class int

const (
	// ClassLifecycle marks platform start/end-of-invocation lines.
	// They carry no payload and are filtered, producing no record.
	ClassLifecycle Class = iota

	// ClassReport marks the platform's per-invocation metrics line.
	ClassReport

	// ClassError marks application error lines tagged with [ERROR].
	ClassError

	// ClassPayload is the default: anything that is not a platform
	// marker is treated as an application payload.
	ClassPayload
)

func (c Class) String() string {
	switch c {
	case ClassLifecycle:
		return "lifecycle"
	case ClassReport:
		return "report"
	case ClassError:
		return "error"
	case ClassPayload:
		return "payload"
	}
	return "unknown"
}

// Platform marker prefixes, checked in priority order. The full
// "RequestId: " marker is matched so that payload lines merely starting
// with the word START are not swallowed.
const (
	prefixStart  = "START RequestId: "
	prefixEnd    = "END RequestId: "
	prefixReport = "REPORT RequestId: "
	prefixError  = "[ERROR]"
)

// Classify decides which sub-parser applies to a message. It is a total
// function of the message prefix: first match wins, and anything that is
// not a platform marker falls through to ClassPayload.
func Classify(message string) Class {
	switch {
	case strings.HasPrefix(message, prefixStart), strings.HasPrefix(message, prefixEnd):
		return ClassLifecycle
	case strings.HasPrefix(message, prefixReport):
		return ClassReport
	case strings.HasPrefix(message, prefixError):
		return ClassError
	default:
		return ClassPayload
	}
}
