package internal

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Output is where Echo and Warn write. It's stderr unless a test replaces it.
var Output io.Writer = os.Stderr

// Fatal will Echo the message and os.Exit with code 1.
func Fatal(msg string, args ...any) {
	Echo(msg, args...)
	os.Exit(1)
}

// Echo will emit the given message without any logging formatting.
func Echo(msg string, args ...any) {
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	_, _ = fmt.Fprintf(Output, msg, args...)
}

// Warn will Echo the message with a warning prefix.
func Warn(msg string, args ...any) {
	Echo("WARNING: "+msg, args...)
}
