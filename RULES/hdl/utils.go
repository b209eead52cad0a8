package hdl

import (
	"fmt"
	"hash/crc32"
	"regexp"
	"strings"
)

func IsRtl(path string) bool {
	return IsVhdl(path) || IsVerilog(path)
}

func IsVhdl(path string) bool {
	return strings.HasSuffix(path, ".vhd") || strings.HasSuffix(path, ".vhdl")
}

func IsVerilog(path string) bool {
	return strings.HasSuffix(path, ".v") || strings.HasSuffix(path, ".sv")
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// safeName turns a test name into a directory name. The hash suffix keeps
// names distinct that only differ in replaced characters.
func safeName(name string) string {
	clean := unsafeChars.ReplaceAllString(name, "_")
	if len(clean) > 80 {
		clean = clean[:80]
	}
	return fmt.Sprintf("%s_%08x", clean, crc32.ChecksumIEEE([]byte(name)))
}

// splitFlags splits a flag string given on the command line into arguments.
func splitFlags(flags string) []string {
	return strings.Fields(flags)
}
