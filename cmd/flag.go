package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configKeyAnnotation marks a flag with the config key it sets
const configKeyAnnotation = "sitecheck_config_key"

type Flag struct {
	Config string
	Cli    string
}

type StringFlag struct {
	f *Flag
}

type StringPFlag struct {
	f  *Flag
	sh string
}

type IntFlag struct {
	f *Flag
}

type BoolFlag struct {
	f *Flag
}

type BoolPFlag struct {
	f  *Flag
	sh string
}

type DurationFlag struct {
	f *Flag
}

type Float64Flag struct {
	f *Flag
}

type Uint64Flag struct {
	f *Flag
}

func (f *StringFlag) Bind(cmd *cobra.Command, value, usage string) {
	cmd.PersistentFlags().String(f.f.Cli, value, usage)
	f.f.annotate(cmd)
}

func (f *Flag) String() *StringFlag {
	return &StringFlag{
		f: f,
	}
}

func (f *StringPFlag) Bind(cmd *cobra.Command, value, usage string) {
	cmd.PersistentFlags().StringP(f.f.Cli, f.sh, value, usage)
	f.f.annotate(cmd)
}

func (f *Flag) StringP(shorthand string) *StringPFlag {
	return &StringPFlag{
		f:  f,
		sh: shorthand,
	}
}

func (f *IntFlag) Bind(cmd *cobra.Command, value int, usage string) {
	cmd.PersistentFlags().Int(f.f.Cli, value, usage)
	f.f.annotate(cmd)
}

func (f *Flag) Int() *IntFlag {
	return &IntFlag{
		f: f,
	}
}

func (f *BoolFlag) Bind(cmd *cobra.Command, value bool, usage string) {
	cmd.PersistentFlags().Bool(f.f.Cli, value, usage)
	f.f.annotate(cmd)
}

func (f *Flag) Bool() *BoolFlag {
	return &BoolFlag{
		f: f,
	}
}

func (f *BoolPFlag) Bind(cmd *cobra.Command, value bool, usage string) {
	cmd.PersistentFlags().BoolP(f.f.Cli, f.sh, value, usage)
	f.f.annotate(cmd)
}

func (f *Flag) BoolP(shorthand string) *BoolPFlag {
	return &BoolPFlag{
		f:  f,
		sh: shorthand,
	}
}

func (f *DurationFlag) Bind(cmd *cobra.Command, value time.Duration, usage string) {
	cmd.PersistentFlags().Duration(f.f.Cli, value, usage)
	f.f.annotate(cmd)
}

func (f *Flag) Duration() *DurationFlag {
	return &DurationFlag{
		f: f,
	}
}

func (f *Float64Flag) Bind(cmd *cobra.Command, value float64, usage string) {
	cmd.PersistentFlags().Float64(f.f.Cli, value, usage)
	f.f.annotate(cmd)
}

func (f *Flag) Float64() *Float64Flag {
	return &Float64Flag{
		f: f,
	}
}

func (f *Uint64Flag) Bind(cmd *cobra.Command, value uint64, usage string) {
	cmd.PersistentFlags().Uint64(f.f.Cli, value, usage)
	f.f.annotate(cmd)
}

func (f *Flag) Uint64() *Uint64Flag {
	return &Uint64Flag{
		f: f,
	}
}

// annotate records the config key on the flag. The key is bound to viper
// by bindFlags when the command runs, so several commands may declare a
// flag for the same key.
func (f *Flag) annotate(cmd *cobra.Command) {
	if err := cmd.PersistentFlags().SetAnnotation(f.Cli, configKeyAnnotation, []string{f.Config}); err != nil {
		panic(err)
	}
}

// bindFlags binds the annotated flags of the executed command to their config keys
func bindFlags(cmd *cobra.Command) error {
	var errs []error
	cmd.Flags().VisitAll(func(fl *pflag.Flag) {
		for _, key := range fl.Annotations[configKeyAnnotation] {
			if err := viper.BindPFlag(key, fl); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func NewFlag(config, cli string) *Flag {
	return &Flag{
		Config: config,
		Cli:    cli,
	}
}
