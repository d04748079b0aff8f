package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// cliFlag describes a flag for completion scripts.
type cliFlag struct {
	name   string
	desc   string
	values []string // fixed choices
	value  bool     // takes a free-form value
	file   bool     // takes a file path
}

type cliCommand struct {
	name  string
	desc  string
	args  []string // fixed positional choices
	flags []cliFlag
}

var connCompletionFlags = []cliFlag{
	{name: "server", desc: "Capture server URL", value: true},
	{name: "account", desc: "Account name", value: true},
	{name: "log-level", desc: "Log level", values: []string{"debug", "info", "warn", "error"}},
}

func withConn(flags ...cliFlag) []cliFlag {
	return append(append([]cliFlag{}, connCompletionFlags...), flags...)
}

var cliCommands = []cliCommand{
	{name: "tail", desc: "Stream captures to stdout as they arrive", flags: withConn(
		cliFlag{name: "last", desc: "Existing captures to print first", value: true},
		cliFlag{name: "filter", desc: "JavaScript filter expression", value: true},
		cliFlag{name: "json", desc: "Print one JSON object per line"},
	)},
	{name: "list", desc: "List captured requests", flags: withConn(
		cliFlag{name: "limit", desc: "Number of captures to fetch", value: true},
		cliFlag{name: "skip", desc: "Newest captures to skip", value: true},
		cliFlag{name: "filter", desc: "JavaScript filter expression", value: true},
		cliFlag{name: "json", desc: "Print JSON"},
	)},
	{name: "count", desc: "Print the number of captured requests", flags: withConn()},
	{name: "delete", desc: "Delete one captured request", flags: withConn()},
	{name: "clear", desc: "Delete every captured request", flags: withConn(
		cliFlag{name: "yes", desc: "Do not ask for confirmation"},
	)},
	{name: "export", desc: "Export captured requests", flags: withConn(
		cliFlag{name: "format", desc: "Export format", values: []string{"csv", "json", "har"}},
		cliFlag{name: "local", desc: "Build the export from fetched captures"},
		cliFlag{name: "limit", desc: "Captures in a local export", value: true},
		cliFlag{name: "output", desc: "Output file path", file: true},
	)},
	{name: "config", desc: "Show or update configuration", args: []string{"show", "set", "path"}, flags: withConn(
		cliFlag{name: "response", desc: "JSON body returned to senders", value: true},
		cliFlag{name: "min", desc: "Minimum response time in ms", value: true},
		cliFlag{name: "max", desc: "Maximum response time in ms", value: true},
	)},
	{name: "history", desc: "Browse the local capture history", args: []string{"list", "search", "show", "clear"}, flags: withConn(
		cliFlag{name: "all", desc: "Include every account"},
		cliFlag{name: "limit", desc: "Maximum entries", value: true},
		cliFlag{name: "method", desc: "Only this HTTP method", values: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS", "HEAD"}},
		cliFlag{name: "since", desc: "Only captures newer than this", value: true},
		cliFlag{name: "json", desc: "Print JSON"},
	)},
	{name: "mock", desc: "Start a local fake capture server", flags: []cliFlag{
		{name: "port", desc: "Port to listen on", value: true},
		{name: "latency", desc: "Artificial REST latency", value: true},
		{name: "error-rate", desc: "Random REST error rate", value: true},
		{name: "cors-origin", desc: "Access-Control-Allow-Origin value", value: true},
		{name: "ping", desc: "Push ping interval", value: true},
		{name: "generate", desc: "Synthetic captures per second", value: true},
		{name: "account", desc: "Account for synthetic captures", value: true},
		{name: "max-captures", desc: "Captures kept per account", value: true},
		{name: "log-level", desc: "Log level", values: []string{"debug", "info", "warn", "error"}},
	}},
	{name: "completion", desc: "Generate shell completion scripts", args: []string{"bash", "zsh", "fish"}},
	{name: "version", desc: "Print version information"},
	{name: "help", desc: "Show help message"},
}

func completionCmd() {
	fs := flag.NewFlagSet("completion", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hookscope completion <bash|zsh|fish>\n\n")
		fmt.Fprintf(os.Stderr, "Generate shell completion scripts.\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  # Bash\n")
		fmt.Fprintf(os.Stderr, "  hookscope completion bash > /usr/local/etc/bash_completion.d/hookscope\n")
		fmt.Fprintf(os.Stderr, "  # Zsh\n")
		fmt.Fprintf(os.Stderr, "  hookscope completion zsh > \"${fpath[1]}/_hookscope\"\n")
		fmt.Fprintf(os.Stderr, "  # Fish\n")
		fmt.Fprintf(os.Stderr, "  hookscope completion fish > ~/.config/fish/completions/hookscope.fish\n")
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: shell name is required (bash, zsh, or fish)\n\n")
		fs.Usage()
		os.Exit(2)
	}

	switch shell := fs.Arg(0); shell {
	case "bash":
		fmt.Print(generateBashCompletion())
	case "zsh":
		fmt.Print(generateZshCompletion())
	case "fish":
		fmt.Print(generateFishCompletion())
	default:
		fmt.Fprintf(os.Stderr, "Error: unsupported shell %q (use bash, zsh, or fish)\n", shell)
		os.Exit(2)
	}
}

func commandNames() []string {
	names := make([]string, len(cliCommands))
	for i, c := range cliCommands {
		names[i] = c.name
	}
	return names
}

func generateBashCompletion() string {
	var b strings.Builder
	b.WriteString("# bash completion for hookscope                          -*- shell-script -*-\n\n")
	b.WriteString("_hookscope() {\n")
	b.WriteString("    local cur prev words cword\n")
	b.WriteString("    _init_completion || return\n\n")
	fmt.Fprintf(&b, "    local commands=%q\n\n", strings.Join(commandNames(), " "))
	b.WriteString("    if [[ ${cword} -eq 1 ]]; then\n")
	b.WriteString("        COMPREPLY=($(compgen -W \"${commands}\" -- \"${cur}\"))\n")
	b.WriteString("        return\n")
	b.WriteString("    fi\n\n")
	b.WriteString("    local command=\"${words[1]}\"\n\n")

	// Flag values first.
	b.WriteString("    case \"${command}:${prev}\" in\n")
	for _, c := range cliCommands {
		for _, f := range c.flags {
			switch {
			case len(f.values) > 0:
				fmt.Fprintf(&b, "        %s:--%s)\n", c.name, f.name)
				fmt.Fprintf(&b, "            COMPREPLY=($(compgen -W %q -- \"${cur}\"))\n", strings.Join(f.values, " "))
				b.WriteString("            return\n            ;;\n")
			case f.file:
				fmt.Fprintf(&b, "        %s:--%s)\n", c.name, f.name)
				b.WriteString("            _filedir\n            return\n            ;;\n")
			case f.value:
				fmt.Fprintf(&b, "        %s:--%s)\n", c.name, f.name)
				b.WriteString("            return\n            ;;\n")
			}
		}
	}
	b.WriteString("    esac\n\n")

	b.WriteString("    case \"${command}\" in\n")
	for _, c := range cliCommands {
		if len(c.flags) == 0 && len(c.args) == 0 {
			continue
		}
		fmt.Fprintf(&b, "        %s)\n", c.name)
		if len(c.flags) > 0 {
			flags := make([]string, len(c.flags))
			for i, f := range c.flags {
				flags[i] = "--" + f.name
			}
			b.WriteString("            if [[ \"${cur}\" == -* ]]; then\n")
			fmt.Fprintf(&b, "                COMPREPLY=($(compgen -W %q -- \"${cur}\"))\n", strings.Join(flags, " "))
			b.WriteString("                return\n")
			b.WriteString("            fi\n")
		}
		if len(c.args) > 0 {
			b.WriteString("            if [[ ${cword} -eq 2 ]]; then\n")
			fmt.Fprintf(&b, "                COMPREPLY=($(compgen -W %q -- \"${cur}\"))\n", strings.Join(c.args, " "))
			b.WriteString("            fi\n")
		}
		b.WriteString("            ;;\n")
	}
	b.WriteString("    esac\n")
	b.WriteString("}\n\n")
	b.WriteString("complete -F _hookscope hookscope\n")
	return b.String()
}

func generateZshCompletion() string {
	var b strings.Builder
	b.WriteString("#compdef hookscope\n\n")
	b.WriteString("# zsh completion for hookscope\n\n")
	b.WriteString("_hookscope() {\n")
	b.WriteString("    local -a commands\n")
	b.WriteString("    commands=(\n")
	for _, c := range cliCommands {
		fmt.Fprintf(&b, "        '%s:%s'\n", c.name, c.desc)
	}
	b.WriteString("    )\n\n")
	b.WriteString("    _arguments -C \\\n")
	b.WriteString("        '1:command:->command' \\\n")
	b.WriteString("        '*::arg:->args'\n\n")
	b.WriteString("    case $state in\n")
	b.WriteString("        command)\n")
	b.WriteString("            _describe -t commands 'hookscope commands' commands\n")
	b.WriteString("            ;;\n")
	b.WriteString("        args)\n")
	b.WriteString("            case $words[1] in\n")
	for _, c := range cliCommands {
		if len(c.flags) == 0 && len(c.args) == 0 {
			continue
		}
		fmt.Fprintf(&b, "                %s)\n", c.name)
		b.WriteString("                    _arguments")
		if len(c.args) > 0 {
			fmt.Fprintf(&b, " \\\n                        '1:%s:(%s)'", c.name, strings.Join(c.args, " "))
		}
		for _, f := range c.flags {
			arg := fmt.Sprintf("--%s[%s]", f.name, f.desc)
			switch {
			case len(f.values) > 0:
				arg += fmt.Sprintf(":%s:(%s)", f.name, strings.Join(f.values, " "))
			case f.file:
				arg += ":file:_files"
			case f.value:
				arg += ":" + f.name + ":"
			}
			fmt.Fprintf(&b, " \\\n                        '%s'", arg)
		}
		b.WriteString("\n                    ;;\n")
	}
	b.WriteString("            esac\n")
	b.WriteString("            ;;\n")
	b.WriteString("    esac\n")
	b.WriteString("}\n\n")
	b.WriteString("_hookscope \"$@\"\n")
	return b.String()
}

func generateFishCompletion() string {
	var b strings.Builder
	b.WriteString("# fish completion for hookscope\n\n")
	b.WriteString("# Disable file completions by default\n")
	b.WriteString("complete -c hookscope -f\n\n")
	b.WriteString("# Subcommands\n")
	for _, c := range cliCommands {
		fmt.Fprintf(&b, "complete -c hookscope -n '__fish_use_subcommand' -a %s -d '%s'\n", c.name, c.desc)
	}
	for _, c := range cliCommands {
		if len(c.flags) == 0 && len(c.args) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n# %s\n", c.name)
		cond := "__fish_seen_subcommand_from " + c.name
		if len(c.args) > 0 {
			fmt.Fprintf(&b, "complete -c hookscope -n '%s' -a '%s'\n", cond, strings.Join(c.args, " "))
		}
		for _, f := range c.flags {
			line := fmt.Sprintf("complete -c hookscope -n '%s' -l %s -d '%s'", cond, f.name, f.desc)
			switch {
			case len(f.values) > 0:
				line += fmt.Sprintf(" -ra '%s'", strings.Join(f.values, " "))
			case f.file:
				line += " -rF"
			case f.value:
				line += " -r"
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}
