// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plugin

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = iota + 1
	PluginOptionTypeBool
	PluginOptionTypeInt
	PluginOptionTypeUint
	PluginOptionTypeDuration
)

const envVarPrefix = "ROLLUPDB_DATABASE_"

// PluginOption binds a plugin setting to its command line flag, config file key and env var
type PluginOption struct {
	DefaultValue any
	Dest         any
	Name         string
	Description  string
	Type         PluginOptionType
}

// AddToFlagSet registers the option as a flag named <type>-<plugin>-<option>
func (p *PluginOption) AddToFlagSet(
	fs *pflag.FlagSet,
	pluginType string,
	pluginName string,
) error {
	flagName := fmt.Sprintf("%s-%s-%s", pluginType, pluginName, p.Name)
	switch p.Type {
	case PluginOptionTypeString:
		dest, ok := p.Dest.(*string)
		if !ok {
			return p.destTypeError("*string")
		}
		def, _ := p.DefaultValue.(string)
		fs.StringVar(dest, flagName, def, p.Description)
	case PluginOptionTypeBool:
		dest, ok := p.Dest.(*bool)
		if !ok {
			return p.destTypeError("*bool")
		}
		def, _ := p.DefaultValue.(bool)
		fs.BoolVar(dest, flagName, def, p.Description)
	case PluginOptionTypeInt:
		dest, ok := p.Dest.(*int)
		if !ok {
			return p.destTypeError("*int")
		}
		def, _ := p.DefaultValue.(int)
		fs.IntVar(dest, flagName, def, p.Description)
	case PluginOptionTypeUint:
		dest, ok := p.Dest.(*uint64)
		if !ok {
			return p.destTypeError("*uint64")
		}
		def, _ := p.DefaultValue.(uint64)
		fs.Uint64Var(dest, flagName, def, p.Description)
	case PluginOptionTypeDuration:
		dest, ok := p.Dest.(*time.Duration)
		if !ok {
			return p.destTypeError("*time.Duration")
		}
		def, _ := p.DefaultValue.(time.Duration)
		fs.DurationVar(dest, flagName, def, p.Description)
	default:
		return fmt.Errorf(
			"unknown plugin option type %d for option %s",
			p.Type,
			p.Name,
		)
	}
	return nil
}

// EnvVarName returns the environment variable consulted for the option
func (p *PluginOption) EnvVarName(pluginType string, pluginName string) string {
	name := fmt.Sprintf("%s%s_%s_%s", envVarPrefix, pluginType, pluginName, p.Name)
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func (p *PluginOption) destTypeError(expected string) error {
	return fmt.Errorf(
		"invalid destination type for option %s: expected %s",
		p.Name,
		expected,
	)
}

// assign performs a type-checked assignment of value into the Dest pointer.
// Strings are parsed, which lets the same path serve env vars and YAML scalars.
func (p *PluginOption) assign(value any) error {
	if p.Dest == nil {
		return fmt.Errorf("nil destination for option %s", p.Name)
	}
	switch p.Type {
	case PluginOptionTypeString:
		dest, ok := p.Dest.(*string)
		if !ok {
			return p.destTypeError("*string")
		}
		switch v := value.(type) {
		case string:
			*dest = v
		case fmt.Stringer:
			*dest = v.String()
		default:
			return fmt.Errorf("invalid type for option %s: expected string", p.Name)
		}
	case PluginOptionTypeBool:
		dest, ok := p.Dest.(*bool)
		if !ok {
			return p.destTypeError("*bool")
		}
		switch v := value.(type) {
		case bool:
			*dest = v
		case string:
			tmp, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for option %s: %w", p.Name, err)
			}
			*dest = tmp
		default:
			return fmt.Errorf("invalid type for option %s: expected bool", p.Name)
		}
	case PluginOptionTypeInt:
		dest, ok := p.Dest.(*int)
		if !ok {
			return p.destTypeError("*int")
		}
		switch v := value.(type) {
		case int:
			*dest = v
		case string:
			tmp, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for option %s: %w", p.Name, err)
			}
			*dest = tmp
		default:
			return fmt.Errorf("invalid type for option %s: expected int", p.Name)
		}
	case PluginOptionTypeUint:
		dest, ok := p.Dest.(*uint64)
		if !ok {
			return p.destTypeError("*uint64")
		}
		switch v := value.(type) {
		case uint64:
			*dest = v
		case int:
			if v < 0 {
				return fmt.Errorf("invalid value for option %s: negative int", p.Name)
			}
			*dest = uint64(v)
		case float64:
			// YAML and JSON decoders may produce floats for plain numbers
			if v < 0 || v > math.MaxUint64 || v != math.Trunc(v) {
				return fmt.Errorf("invalid value for option %s: %v", p.Name, v)
			}
			*dest = uint64(v)
		case string:
			tmp, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for option %s: %w", p.Name, err)
			}
			*dest = tmp
		default:
			return fmt.Errorf("invalid type for option %s: expected uint64 or int", p.Name)
		}
	case PluginOptionTypeDuration:
		dest, ok := p.Dest.(*time.Duration)
		if !ok {
			return p.destTypeError("*time.Duration")
		}
		switch v := value.(type) {
		case time.Duration:
			*dest = v
		case string:
			tmp, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid value for option %s: %w", p.Name, err)
			}
			*dest = tmp
		default:
			return fmt.Errorf("invalid type for option %s: expected duration", p.Name)
		}
	default:
		return fmt.Errorf(
			"unknown plugin option type %d for option %s",
			p.Type,
			p.Name,
		)
	}
	return nil
}

// PopulateCmdlineOptions adds the options of every registered plugin to the flag set
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, entry := range pluginEntries {
		for i := range entry.Options {
			if err := entry.Options[i].AddToFlagSet(
				fs,
				PluginTypeName(entry.Type),
				entry.Name,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessConfig applies plugin settings from the config file, keyed by
// plugin type, then plugin name, then option name
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	for pluginTypeName, pluginsConfig := range pluginConfig {
		pluginType, err := pluginTypeFromName(pluginTypeName)
		if err != nil {
			return err
		}
		for pluginName, optionsConfig := range pluginsConfig {
			for optionName, value := range optionsConfig {
				if err := SetPluginOption(pluginType, pluginName, optionName, value); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ProcessEnvVars applies plugin settings from ROLLUPDB_DATABASE_<TYPE>_<PLUGIN>_<OPTION> env vars
func ProcessEnvVars() error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, entry := range pluginEntries {
		for i := range entry.Options {
			opt := &entry.Options[i]
			envName := opt.EnvVarName(PluginTypeName(entry.Type), entry.Name)
			value, ok := os.LookupEnv(envName)
			if !ok {
				continue
			}
			if err := opt.assign(value); err != nil {
				return fmt.Errorf("%s: %w", envName, err)
			}
		}
	}
	return nil
}
