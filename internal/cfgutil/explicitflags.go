// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

// ExplicitString is a string flag that records whether the user set it, in a
// config file or on the command line.  Defaults that depend on other options,
// such as the indexer URL of the selected network, are filled in with
// SetDefault and only when the flag was not set explicitly.
type ExplicitString struct {
	Value         string
	explicitlySet bool
}

// NewExplicitString creates a string flag with the provided default value.
func NewExplicitString(defaultValue string) *ExplicitString {
	return &ExplicitString{Value: defaultValue}
}

// ExplicitlySet returns whether the flag was set through the
// flags.Unmarshaler interface.
func (e *ExplicitString) ExplicitlySet() bool { return e.explicitlySet }

// SetDefault replaces the value unless it was set explicitly.
func (e *ExplicitString) SetDefault(value string) {
	if !e.explicitlySet {
		e.Value = value
	}
}

// String returns the current value.
func (e *ExplicitString) String() string { return e.Value }

// MarshalFlag implements the flags.Marshaler interface.
func (e *ExplicitString) MarshalFlag() (string, error) { return e.Value, nil }

// UnmarshalFlag implements the flags.Unmarshaler interface.
func (e *ExplicitString) UnmarshalFlag(value string) error {
	e.Value = value
	e.explicitlySet = true
	return nil
}
