// Package file provides a path flag that remembers whether the path existed
// when the flag was set.
package file

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

// Type is the type name for the path flag.
const Type = "path"

// Flag holds a path. A leading ~ is expanded to the home directory of the
// current user. The embedded FileInfo is nil if the path does not exist.
type Flag struct {
	path *string
	fs.FileInfo
}

func (f *Flag) String() string {
	if f.path == nil {
		return ""
	}
	return *f.path
}

func (f *Flag) Exists() bool {
	return f.FileInfo != nil
}

// MustExist fails if the path is not set or does not exist.
func (f *Flag) MustExist() error {
	if f.String() == "" {
		return fmt.Errorf("no path given")
	}
	if !f.Exists() {
		return fmt.Errorf("%q does not exist", f.String())
	}
	return nil
}

func (f *Flag) Set(s string) error {
	if f.path == nil {
		f.path = new(string)
	}
	*f.path = expandHome(s)
	f.FileInfo = nil
	if *f.path == "" {
		return nil
	}
	info, err := os.Stat(*f.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unable to stat path %q: %w", *f.path, err)
	}
	f.FileInfo = info
	return nil
}

func (f *Flag) Type() string {
	return Type
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func Var(f *pflag.FlagSet, name string, value string, usage string) {
	flag := &Flag{}
	_ = flag.Set(value)
	f.Var(flag, name, usage)
}

func VarP(f *pflag.FlagSet, name, shorthand string, value string, usage string) {
	flag := &Flag{}
	_ = flag.Set(value)
	f.VarP(flag, name, shorthand, usage)
}

func Get(f *pflag.FlagSet, name string) (*Flag, error) {
	flag := f.Lookup(name)
	if flag == nil {
		return nil, fmt.Errorf("flag accessed but not defined: %s", name)
	}
	if flag.Value.Type() != Type {
		return nil, fmt.Errorf("trying to get %s value of flag of type %s", Type, flag.Value.Type())
	}
	val, ok := flag.Value.(*Flag)
	if !ok {
		return nil, fmt.Errorf("flag %s is not of type %s", name, Type)
	}
	return val, nil
}
