package x64

import "github.com/caarlos0/env/v6"

// Options configures the optional external-tool step the CLI's "x64 -link"
// subcommand runs after Compile: which assembler/linker/compiler front end
// to shell out to, overridable so a dev machine without the Windows
// toolchain can point at its GNU/Linux equivalents (§4.H).
type Options struct {
	Nasm string `env:"NOX_NASM" envDefault:"nasm"`
	CC   string `env:"NOX_CC" envDefault:"cc"`
}

// OptionsFromEnv reads Options overrides from the process environment.
func OptionsFromEnv() (Options, error) {
	var o Options
	if err := env.Parse(&o); err != nil {
		return Options{}, err
	}
	return o, nil
}
