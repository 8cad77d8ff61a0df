// Package flagx lets several components parse their own command-line flags
// from the shared os.Args without tripping over each other's flags.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs keeps only the arguments that belong to allowed flags.
//
// Recognised forms:
//
//	-c conf.yaml        value in the next argument
//	-config=conf.yaml   value after '='
//	-offline            boolean switch (listed in switches, never takes a value)
//
// A flag listed in allowed consumes the next argument as its value unless that
// argument starts with '-'. The result is never nil.
func FilterArgs(args []string, allowed []string, switches ...string) []string {
	valued := toSet(allowed)
	boolean := toSet(switches)

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if valued[name] || boolean[name] {
				out = append(out, arg)
			}
			continue
		}

		switch {
		case boolean[arg]:
			out = append(out, arg)
		case valued[arg]:
			out = append(out, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				out = append(out, args[i+1])
				i++
			}
		}
	}
	return out
}

// ConfigFileFlag returns the config file path given with -c or -config in
// args (usually os.Args[1:]), or "" when neither is present. The last
// occurrence wins.
func ConfigFileFlag(args []string) string {
	var path string

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.SetOutput(discard{})
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config"}))

	return path
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
