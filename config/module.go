// Package config loads the VM's runtime defaults (step budget,
// package.path, trace level): a CUE-validated base file plus an
// optional TOML override, following the same Loader-based schema
// validation package configs uses throughout this module.
package config

import (
	"github.com/reusee/dscope"
	"github.com/rvvm/luavm/configs"
)

// Settings are the knobs every front-end (the VM itself, cmd/lua, the
// inspector) reads at startup: the coroutine/instruction step budget,
// package.path default, and the trace level to start with.
type Settings struct {
	StepBudget  int64  `json:"stepBudget" toml:"step_budget"`
	PackagePath string `json:"packagePath" toml:"package_path"`
	TraceLevel  string `json:"traceLevel" toml:"trace_level"` // "off", "instruction", "call"
}

// schema is the CUE schema the base config file is validated against
// before being decoded into Settings, mirroring configs.Loader's
// schema-then-decode flow.
const schema = `
stepBudget?:  int
packagePath?: string
traceLevel?:  "off" | "instruction" | "call"
`

// Default is used when no config file is supplied at all.
var Default = Settings{
	StepBudget:  0, // 0 means unlimited
	PackagePath: "./?.lua;./?/init.lua",
	TraceLevel:  "off",
}

// Module provides a Loader and the resolved Settings to a dscope
// scope, the same method-per-dependency shape logging.Module uses.
type Module struct {
	dscope.Module
}

// Paths lists the CUE-validated config files to search, in priority
// order (first file with the path present wins), set by the CLI.
type Paths []string

func (Module) Loader(paths Paths) configs.Loader {
	return configs.NewLoader([]string(paths), schema)
}

func (Module) Settings(loader configs.Loader) Settings {
	s := Default
	if err := loader.AssignFirst("", &s); err != nil {
		return Default
	}
	return s
}
