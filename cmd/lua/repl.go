package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"go.starlark.net/starlark"

	"github.com/rvvm/luavm/inspect"
	"github.com/rvvm/luavm/vm"
)

// attachInspector drops into a readline-backed Starlark console over
// state once the program has finished (or errored): snapshot(),
// events() and globals() are bound against the finished VM. It never
// resumes execution; the VM's own coroutine scheduler is the only
// thing that can do that.
func attachInspector(state *vm.State) {
	var historyFile string
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".luavm_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "lua-inspect> ",
		HistoryFile: historyFile,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return
	}
	defer rl.Close()

	globals := inspect.Bindings(state)
	thread := &starlark.Thread{Name: "inspect"}

	for {
		line, err := rl.Readline()
		if err != nil { // Ctrl-C or Ctrl-D
			break
		}
		if line == "" {
			continue
		}
		v, err := starlark.Eval(thread, "<inspect>", line, globals)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		if v != starlark.None {
			fmt.Println(v.String())
		}
	}
}
