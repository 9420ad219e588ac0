// Package enum provides a string flag that only accepts one of a fixed set
// of values.
package enum

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

// Type is the type name of enum flags.
const Type = "enum"

// Flag holds one of options. The first option is the default.
type Flag struct {
	value   string
	options []string
}

// New creates a flag for options. It panics if no options are given.
func New(options ...string) *Flag {
	if len(options) == 0 {
		panic("enum flag needs at least one option")
	}
	return &Flag{value: options[0], options: options}
}

func (f *Flag) String() string {
	return f.value
}

func (f *Flag) Set(s string) error {
	if !slices.Contains(f.options, s) {
		return fmt.Errorf("must be one of %s", strings.Join(f.options, "|"))
	}
	f.value = s
	return nil
}

func (f *Flag) Type() string {
	return Type
}

// Options returns the accepted values.
func (f *Flag) Options() []string {
	return slices.Clone(f.options)
}

func Var(f *pflag.FlagSet, name string, options []string, usage string) {
	f.Var(New(options...), name, withOptions(usage, options))
}

func VarP(f *pflag.FlagSet, name, shorthand string, options []string, usage string) {
	f.VarP(New(options...), name, shorthand, withOptions(usage, options))
}

func withOptions(usage string, options []string) string {
	return fmt.Sprintf("%s (must be one of [%s])", usage, strings.Join(options, " "))
}

func Get(f *pflag.FlagSet, name string) (string, error) {
	flag := f.Lookup(name)
	if flag == nil {
		return "", fmt.Errorf("flag accessed but not defined: %s", name)
	}
	val, ok := flag.Value.(*Flag)
	if !ok {
		return "", fmt.Errorf("flag %s is not of type %s", name, Type)
	}
	return val.String(), nil
}
