package main

import (
	"strings"
	"testing"
)

func TestGenerateBashCompletion(t *testing.T) {
	output := generateBashCompletion()

	if !strings.Contains(output, "_hookscope") {
		t.Error("bash completion should contain _hookscope function name")
	}
	if !strings.Contains(output, "complete -F _hookscope hookscope") {
		t.Error("bash completion should register the completion function")
	}
	if !strings.Contains(output, "commands=") {
		t.Error("bash completion should define commands list")
	}

	for _, cmd := range commandNames() {
		if !strings.Contains(output, cmd) {
			t.Errorf("bash completion should contain subcommand %q", cmd)
		}
	}

	tailFlags := []string{"--last", "--filter", "--json", "--server", "--account", "--log-level"}
	for _, flag := range tailFlags {
		if !strings.Contains(output, flag) {
			t.Errorf("bash completion should contain tail flag %q", flag)
		}
	}

	if !strings.Contains(output, `export:--format)`) {
		t.Error("bash completion should complete export formats")
	}
	if !strings.Contains(output, `"csv json har"`) {
		t.Error("bash completion should list export formats")
	}
	if !strings.Contains(output, "_filedir") {
		t.Error("bash completion should complete file paths for --output")
	}
}

func TestGenerateZshCompletion(t *testing.T) {
	output := generateZshCompletion()

	if !strings.HasPrefix(output, "#compdef hookscope") {
		t.Error("zsh completion should start with #compdef hookscope")
	}
	if !strings.Contains(output, "_describe -t commands") {
		t.Error("zsh completion should describe commands")
	}
	for _, c := range cliCommands {
		if !strings.Contains(output, "'"+c.name+":"+c.desc+"'") {
			t.Errorf("zsh completion should describe %q", c.name)
		}
	}
	if !strings.Contains(output, "--format[Export format]:format:(csv json har)") {
		t.Error("zsh completion should offer export format values")
	}
	if !strings.Contains(output, "'1:history:(list search show clear)'") {
		t.Error("zsh completion should offer history subcommands")
	}
	if !strings.Contains(output, "--output[Output file path]:file:_files") {
		t.Error("zsh completion should complete files for --output")
	}
}

func TestGenerateFishCompletion(t *testing.T) {
	output := generateFishCompletion()

	if !strings.Contains(output, "complete -c hookscope -f") {
		t.Error("fish completion should disable file completions by default")
	}
	for _, cmd := range commandNames() {
		want := "-n '__fish_use_subcommand' -a " + cmd + " "
		if !strings.Contains(output, want) {
			t.Errorf("fish completion should register subcommand %q", cmd)
		}
	}
	if !strings.Contains(output, "-n '__fish_seen_subcommand_from mock' -l generate") {
		t.Error("fish completion should include mock --generate")
	}
	if !strings.Contains(output, "-l log-level -d 'Log level' -ra 'debug info warn error'") {
		t.Error("fish completion should offer log levels")
	}
	if !strings.Contains(output, "-n '__fish_seen_subcommand_from config' -a 'show set path'") {
		t.Error("fish completion should offer config subcommands")
	}
}

func TestCompletionCoversDispatch(t *testing.T) {
	// Every command main dispatches must be completable.
	want := []string{"tail", "list", "count", "delete", "clear", "export", "config", "history", "mock", "completion", "version", "help"}
	got := make(map[string]bool)
	for _, name := range commandNames() {
		got[name] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("command %q missing from completion table", name)
		}
	}
	if len(got) != len(want) {
		t.Errorf("completion table has %d commands, want %d", len(got), len(want))
	}
}

func TestWithConnDoesNotAlias(t *testing.T) {
	a := withConn(cliFlag{name: "a"})
	b := withConn(cliFlag{name: "b"})
	if a[len(a)-1].name != "a" || b[len(b)-1].name != "b" {
		t.Errorf("withConn shares backing arrays: %v / %v", a, b)
	}
	if len(connCompletionFlags) != 3 {
		t.Errorf("connCompletionFlags mutated: %v", connCompletionFlags)
	}
}
