// Package cliflag groups related pflag.FlagSets under a name, so each
// Options struct can register its own flags independently while the
// top-level command still prints one combined --help.
package cliflag

import "github.com/spf13/pflag"

// NamedFlagSets keeps FlagSets in the order they were first requested.
type NamedFlagSets struct {
	FlagSets map[string]*pflag.FlagSet
	Order    []string
}

// FlagSet returns the named set, creating it if this is the first request.
func (n *NamedFlagSets) FlagSet(name string) *pflag.FlagSet {
	if n.FlagSets == nil {
		n.FlagSets = map[string]*pflag.FlagSet{}
	}
	if _, ok := n.FlagSets[name]; !ok {
		n.FlagSets[name] = pflag.NewFlagSet(name, pflag.ExitOnError)
		n.Order = append(n.Order, name)
	}
	return n.FlagSets[name]
}
