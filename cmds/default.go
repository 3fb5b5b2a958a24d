package cmds

// GlobalExecutor is the executor every package-level Define/Var/
// Switch/Collect call registers against.
var GlobalExecutor = NewExecutor()

func Define(name string, command *Command) {
	GlobalExecutor.Define(name, command)
}
