// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// VERSION of alnres
const VERSION = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "alnres",
	Short: "a toolkit for post-processing short-read alignment candidates",
	Long: fmt.Sprintf(`
   alnres -- a toolkit for post-processing short-read alignment candidates

Version: v%s
Author:  Wei Shen <shenwei356@gmail.com>

Commands:
  1. build-ref  pack reference sequences for fast extracting of subsequences
  2. dedup      remove candidate alignments redundant with better ones
  3. summarize  report best and second-best scores of reads/pairs
  4. decode     decode colorspace alignments into nucleotides
  5. check      verify candidate alignments against the reference
  6. version    print version information

Default values of flags can also be set in a config file (--config, TOML/YAML)
or via environment variables like ALNRES_THREADS, ALNRES_DEDUP_MAX_KEEP.

`, VERSION),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	defaultThreads := runtime.NumCPU()
	if defaultThreads > 8 {
		defaultThreads = 8
	}

	RootCmd.PersistentFlags().IntP("threads", "j", defaultThreads,
		formatFlagUsage("Number of CPU cores to use. By default, it uses all available cores (<= 8)."))

	RootCmd.PersistentFlags().BoolP("quiet", "q", false,
		formatFlagUsage("Do not print any verbose information. But you can write them to file with --log."))

	RootCmd.PersistentFlags().StringP("log", "", "",
		formatFlagUsage("Log file."))

	RootCmd.PersistentFlags().StringP("config", "", "",
		formatFlagUsage("Config file (TOML or YAML) for default values of flags. Keys of a command can be put in a table named after the command."))

	RootCmd.CompletionOptions.DisableDefaultCmd = true
	RootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	RootCmd.SetUsageTemplate(usageTemplate(""))
}

// loadConfig fills flags not given in the command line with values from
// the config file or environment variables.
// Precedence: command line > keys of the command (table in config file or
// ALNRES_<CMD>_<FLAG>) > global keys > default value.
// For the same key, environment variables override the config file.
func loadConfig(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix("ALNRES")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	file, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	if file != "" {
		file, err = homedir.Expand(file)
		if err != nil {
			return err
		}
		v.SetConfigFile(file)
		if ext := strings.ToLower(filepath.Ext(file)); ext == "" {
			v.SetConfigType("toml")
		}
		if err = v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %s", file, err)
		}
	}

	return applyConfig(cmd, v)
}

func applyConfig(cmd *cobra.Command, v *viper.Viper) error {
	var err error
	name := cmd.Name()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || f.Name == "config" || f.Name == "help" {
			return
		}

		var key string
		switch {
		case v.IsSet(name + "." + f.Name): // environment variable: ALNRES_<CMD>_<FLAG>
			key = name + "." + f.Name
		case v.IsSet(f.Name):
			key = f.Name
		default:
			return
		}

		var value string
		if strings.HasSuffix(f.Value.Type(), "Slice") {
			value = strings.Join(v.GetStringSlice(key), ",")
		} else {
			value = v.GetString(key)
		}
		if e := cmd.Flags().Set(f.Name, value); e != nil {
			err = fmt.Errorf("invalid value of %s in config: %s", key, e)
		}
	})
	return err
}
