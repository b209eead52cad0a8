package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// EnvVarPrefix prefixes the environment variable of every registered flag.
const EnvVarPrefix = "TBRUN"

var registeredFlags = map[string]flagInterface{}

type flagInfo struct {
	Description   string
	Type          string
	AllowedValues []string
	Value         string
}

type flagInterface interface {
	info() flagInfo
	setFromString(string) error
	setToDefault()
	cliFlag() cli.Flag
	cliValue(*cli.Context) string
}

type StringFlag struct {
	Name          string
	Description   string
	AllowedValues []string
	DefaultFn     func() string

	isSet bool
	value string
}

func (flag *StringFlag) Value() string {
	if !flag.isSet {
		flag.setToDefault()
	}
	return flag.value
}

func (flag StringFlag) Register() *StringFlag {
	registerFlag(flag.Name, &flag)
	return &flag
}

func (flag *StringFlag) info() flagInfo {
	return flagInfo{flag.Description, "string", flag.AllowedValues, flag.Value()}
}

func (flag *StringFlag) setFromString(value string) error {
	flag.value = value
	flag.isSet = true
	return nil
}

func (flag *StringFlag) setToDefault() {
	flag.value = ""
	if flag.DefaultFn != nil {
		flag.value = flag.DefaultFn()
	}
	flag.isSet = true
}

func (flag *StringFlag) cliFlag() cli.Flag {
	def := ""
	if flag.DefaultFn != nil {
		def = flag.DefaultFn()
	}
	usage := flag.Description
	if len(flag.AllowedValues) > 0 {
		usage = fmt.Sprintf("%s (%s)", usage, strings.Join(flag.AllowedValues, ", "))
	}
	return &cli.StringFlag{
		Name:    flag.Name,
		Usage:   usage,
		Value:   def,
		EnvVars: flagEnvVars(flag.Name),
	}
}

func (flag *StringFlag) cliValue(c *cli.Context) string {
	return c.String(flag.Name)
}

type BoolFlag struct {
	Name        string
	Description string
	DefaultFn   func() bool

	isSet bool
	value bool
}

func (flag *BoolFlag) Value() bool {
	if !flag.isSet {
		flag.setToDefault()
	}
	return flag.value
}

func (flag BoolFlag) Register() *BoolFlag {
	registerFlag(flag.Name, &flag)
	return &flag
}

func (flag *BoolFlag) info() flagInfo {
	return flagInfo{flag.Description, "bool", []string{"true", "false"}, strconv.FormatBool(flag.Value())}
}

func (flag *BoolFlag) setFromString(value string) error {
	switch value {
	case "true":
		flag.value = true
	case "false":
		flag.value = false
	default:
		return errors.Errorf("invalid value '%s' for boolean flag '%s'", value, flag.Name)
	}
	flag.isSet = true
	return nil
}

func (flag *BoolFlag) setToDefault() {
	flag.value = false
	if flag.DefaultFn != nil {
		flag.value = flag.DefaultFn()
	}
	flag.isSet = true
}

func (flag *BoolFlag) cliFlag() cli.Flag {
	def := false
	if flag.DefaultFn != nil {
		def = flag.DefaultFn()
	}
	return &cli.BoolFlag{
		Name:    flag.Name,
		Usage:   flag.Description,
		Value:   def,
		EnvVars: flagEnvVars(flag.Name),
	}
}

func (flag *BoolFlag) cliValue(c *cli.Context) string {
	return strconv.FormatBool(c.Bool(flag.Name))
}

type IntFlag struct {
	Name          string
	Description   string
	AllowedValues []int64
	DefaultFn     func() int64

	isSet bool
	value int64
}

func (flag *IntFlag) Value() int64 {
	if !flag.isSet {
		flag.setToDefault()
	}
	return flag.value
}

func (flag IntFlag) Register() *IntFlag {
	registerFlag(flag.Name, &flag)
	return &flag
}

func (flag *IntFlag) info() flagInfo {
	allowedValues := []string{}
	for _, value := range flag.AllowedValues {
		allowedValues = append(allowedValues, strconv.FormatInt(value, 10))
	}
	return flagInfo{flag.Description, "int", allowedValues, strconv.FormatInt(flag.Value(), 10)}
}

func (flag *IntFlag) setFromString(value string) error {
	i64, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid value '%s' for integer flag '%s'", value, flag.Name)
	}
	flag.value = i64
	flag.isSet = true
	return nil
}

func (flag *IntFlag) setToDefault() {
	flag.value = 0
	if flag.DefaultFn != nil {
		flag.value = flag.DefaultFn()
	}
	flag.isSet = true
}

func (flag *IntFlag) cliFlag() cli.Flag {
	var def int64
	if flag.DefaultFn != nil {
		def = flag.DefaultFn()
	}
	return &cli.Int64Flag{
		Name:    flag.Name,
		Usage:   flag.Description,
		Value:   def,
		EnvVars: flagEnvVars(flag.Name),
	}
}

func (flag *IntFlag) cliValue(c *cli.Context) string {
	return strconv.FormatInt(c.Int64(flag.Name), 10)
}

func registerFlag(name string, flag flagInterface) {
	if _, exists := registeredFlags[name]; exists {
		panic(fmt.Sprintf("multiple flags with name '%s'", name))
	}
	registeredFlags[name] = flag
}

func flagEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))}
}

func sortedFlagNames() []string {
	names := make([]string, 0, len(registeredFlags))
	for name := range registeredFlags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFlags assigns a value to every registered flag. Sources are consulted in
// order and the first one holding a value for a flag wins; flags not present
// in any source fall back to their default.
func LoadFlags(sources ...map[string]string) error {
	for _, source := range sources {
		for name := range source {
			if _, ok := registeredFlags[name]; !ok {
				return errors.Errorf("unknown flag '%s'", name)
			}
		}
	}

	for _, name := range sortedFlagNames() {
		flag := registeredFlags[name]
		found := false
		for _, source := range sources {
			if value, exists := source[name]; exists {
				if err := flag.setFromString(value); err != nil {
					return err
				}
				found = true
				break
			}
		}
		if !found {
			flag.setToDefault()
		}

		info := flag.info()
		if len(info.AllowedValues) == 0 {
			continue
		}
		allowed := false
		for _, value := range info.AllowedValues {
			if info.Value == value {
				allowed = true
				break
			}
		}
		if !allowed {
			return errors.Errorf("flag '%s' has unallowed value '%s'", name, info.Value)
		}
	}
	return nil
}

// CLIFlags exposes every registered flag on the command line.
func CLIFlags() []cli.Flag {
	flags := []cli.Flag{}
	for _, name := range sortedFlagNames() {
		flags = append(flags, registeredFlags[name].cliFlag())
	}
	return flags
}

// CLIValues returns the registered flags that were set explicitly on the
// command line or through the environment.
func CLIValues(c *cli.Context) map[string]string {
	values := map[string]string{}
	for _, name := range sortedFlagNames() {
		if c.IsSet(name) {
			values[name] = registeredFlags[name].cliValue(c)
		}
	}
	return values
}
