// SPDX-License-Identifier: MPL-2.0

package modsync

import (
	"fmt"
	"strings"
)

// The aggregator file (src/lib.rs) is edited textually, anchored on the two
// marker lines each module contributes. Everything else in the file belongs
// to the user and is never touched.

// ModLine returns a module's declaration marker.
func ModLine(stem string) string {
	return fmt.Sprintf("mod %s;", stem)
}

// HandleLine returns a module's registration marker. Plugin libraries
// register tool classes so the editor loads them.
func HandleLine(stem, identifier string, plugin bool) string {
	method := "add_class"
	if plugin {
		method = "add_tool_class"
	}
	return fmt.Sprintf("handle.%s::<%s::%s>();", method, stem, identifier)
}

// AddModule inserts the two marker lines for a module into the aggregator
// contents. The declaration goes after the last existing declaration (or at
// the top of the file when there is none); the registration goes after the
// last existing registration (or just inside the init function for the first
// module). A marker that is already present is left alone, so the edit is
// idempotent.
func AddModule(contents, stem, identifier string, plugin bool) string {
	lines := strings.Split(contents, "\n")

	modLine := ModLine(stem)
	if !containsTrimmed(lines, modLine) {
		lines = insertAfter(lines, lastIndex(lines, isModDecl), modLine)
	}

	handleLine := HandleLine(stem, identifier, plugin)
	if !containsTrimmed(lines, handleLine) {
		if at := lastIndex(lines, isRegistration); at >= 0 {
			lines = insertAfter(lines, at, indentOf(lines[at])+handleLine)
		} else if at := lastIndex(lines, isInitOpen); at >= 0 {
			lines = insertAfter(lines, at, indentOf(lines[at])+"    "+handleLine)
		} else {
			lines = append(lines, handleLine)
		}
	}

	return strings.Join(lines, "\n")
}

// RemoveModule drops a module's marker lines from the aggregator contents.
// Both registration variants are matched so a module survives a library kind
// mismatch in hand-edited files. Missing markers are a no-op.
func RemoveModule(contents, stem, identifier string) string {
	remove := map[string]bool{
		ModLine(stem):                       true,
		HandleLine(stem, identifier, false): true,
		HandleLine(stem, identifier, true):  true,
	}

	lines := strings.Split(contents, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if remove[strings.TrimSpace(line)] {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func containsTrimmed(lines []string, want string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) == want {
			return true
		}
	}
	return false
}

// lastIndex returns the index of the last line satisfying pred, or -1.
func lastIndex(lines []string, pred func(string) bool) int {
	at := -1
	for i, line := range lines {
		if pred(line) {
			at = i
		}
	}
	return at
}

// insertAfter inserts line after index at; at == -1 prepends.
func insertAfter(lines []string, at int, line string) []string {
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:at+1]...)
	out = append(out, line)
	return append(out, lines[at+1:]...)
}

func isModDecl(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "mod ") && strings.HasSuffix(t, ";")
}

func isRegistration(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "handle.add_class::<") && strings.HasSuffix(t, ";") ||
		strings.HasPrefix(t, "handle.add_tool_class::<") && strings.HasSuffix(t, ";")
}

func isInitOpen(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "fn init(") && strings.HasSuffix(t, "{")
}

func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
