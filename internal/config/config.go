// Package config loads predefined macros and pipeline settings from an ini
// file:
//
//	[preprocessor]
//	keep_unknown_directives = true
//	undef = A, B
//
//	[define]
//	DEBUG = 1
//	SQ(x) = ((x)*(x))
package config

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/fwessels/cpp/internal/preprocessor"
)

// Define is one entry of the [define] section.
type Define struct {
	Name  string
	Value string
}

type Config struct {
	KeepUnknown bool
	Defines     []Define
	Undefs      []string
}

var loadOptions = ini.LoadOptions{
	IgnoreInlineComment:     true,
	PreserveSurroundedQuote: true,
	KeyValueDelimiters:      "=",
}

// Load reads a config file. source is a file name or a []byte.
func Load(source interface{}) (*Config, error) {
	f, err := ini.LoadSources(loadOptions, source)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	sec := f.Section("preprocessor")
	c := &Config{
		KeepUnknown: sec.Key("keep_unknown_directives").MustBool(false),
	}
	for _, name := range sec.Key("undef").Strings(",") {
		if name = strings.TrimSpace(name); name != "" {
			c.Undefs = append(c.Undefs, name)
		}
	}
	for _, key := range f.Section("define").Keys() {
		c.Defines = append(c.Defines, Define{Name: key.Name(), Value: key.Value()})
	}
	return c, nil
}

// Apply defines and then undefines the configured macros on p.
func (c *Config) Apply(p *preprocessor.Preprocessor) error {
	if c.KeepUnknown {
		p.KeepUnknown = true
	}
	for _, d := range c.Defines {
		if err := p.Define(d.Name + "=" + d.Value); err != nil {
			return errors.Wrapf(err, "define %s", d.Name)
		}
	}
	for _, name := range c.Undefs {
		if err := p.Undef(name); err != nil {
			return errors.Wrapf(err, "undef %s", name)
		}
	}
	return nil
}
