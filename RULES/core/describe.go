package core

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

const describeVersion = 1

type flagsDescription struct {
	Version uint
	Flags   map[string]flagInfo
}

// DescribeFlags writes every registered flag with its current value as JSON,
// for editor completion and wrapper scripts.
func DescribeFlags(w io.Writer) error {
	output := flagsDescription{
		Version: describeVersion,
		Flags:   map[string]flagInfo{},
	}
	for _, name := range sortedFlagNames() {
		output.Flags[name] = registeredFlags[name].info()
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal flags")
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
