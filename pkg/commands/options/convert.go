package options

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tableflip.dev/wordsmith/pkg/backend"
)

// ConvertOptions
type ConvertOptions struct {
	Type string
	File string
}

func AddConvertArgs(cmd *cobra.Command, o *ConvertOptions) {
	fs := pflag.NewFlagSet("convert", pflag.ContinueOnError)
	fs.StringVarP(&o.Type, "type", "t", "",
		fmt.Sprintf("Convert type, one of %s. Defaults to the saved type.", typeNames()))
	fs.StringVarP(&o.File, "file", "f", "",
		`Read the text from a file, "-" for stdin.`)
	cmd.Flags().AddFlagSet(fs)
}

// ConvertType resolves the flag, falling back to def when unset.
func (o *ConvertOptions) ConvertType(def backend.ConvertType) (backend.ConvertType, error) {
	if o.Type == "" {
		return def, nil
	}
	ct, ok := backend.ParseConvertType(o.Type)
	if !ok {
		return "", fmt.Errorf("unknown convert type %q, expected one of %s", o.Type, typeNames())
	}
	return ct, nil
}

func typeNames() string {
	names := make([]string, 0, len(backend.ConvertTypes()))
	for _, ct := range backend.ConvertTypes() {
		names = append(names, string(ct))
	}
	return strings.Join(names, ", ")
}
