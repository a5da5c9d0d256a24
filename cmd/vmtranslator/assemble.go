package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/psilLang/vmtranslator/pkg/hack"
)

var assembleOutput string

var assembleCmd = &cobra.Command{
	Use:   "assemble file.asm",
	Short: "Assemble Hack assembly into .hack machine code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := args[0]
		data, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		code, err := hack.Assemble(string(data))
		if err != nil {
			return fmt.Errorf("%s: %w", in, err)
		}

		out := assembleOutput
		if out == "" {
			out = strings.TrimSuffix(in, filepath.Ext(in)) + ".hack"
		}
		if err := os.WriteFile(out, []byte(hack.EncodeText(code)), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d words -> %s\n", in, len(code), out)
		return nil
	},
}

func init() {
	assembleCmd.Flags().StringVarP(&assembleOutput, "output", "o", "", "Output .hack path")
	rootCmd.AddCommand(assembleCmd)
}
