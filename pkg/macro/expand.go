package macro

import (
	"regexp"
	"strconv"
	"strings"
)

var argRef = regexp.MustCompile(`\$([1-9]|\*)`)

// ExpandArgs substitutes $1..$9 and $* in a step line with the arguments the
// macro was invoked with. A reference past the end of args becomes empty,
// matching shell positional parameters. Only single-digit positions exist:
// $10 reads as $1 followed by a literal 0.
func ExpandArgs(step string, args []string) string {
	return argRef.ReplaceAllStringFunc(step, func(ref string) string {
		if ref == "$*" {
			return strings.Join(args, " ")
		}
		n, _ := strconv.Atoi(ref[1:])
		if n > len(args) {
			return ""
		}
		return args[n-1]
	})
}
