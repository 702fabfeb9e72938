/*
Copyright © 2019 the MicroMix authors.
This file is part of MicroMix.

MicroMix is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

MicroMix is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with MicroMix.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package micromixutil holds the configuration and command-line
// interface for the MicroMix micro-mixing model.
package micromixutil

import (
	"fmt"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/reactormodel/micromix"
	"github.com/reactormodel/micromix/estimate"
	"github.com/reactormodel/micromix/science/kinetics"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to MicroMix.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Model.Convention",
			usage: `
              Model.Convention selects the reaction-network convention of the
              incorporation model. Valid options are 'original' and 'modified'.
              Unrecognized values fall back to 'modified' together with a
              linear incorporation function.`,
			defaultVal: "modified",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), fitCmd.Flags()},
		},
		{
			name: "Model.Shape",
			usage: `
              Model.Shape selects the shape of the incorporation function.
              Valid options are 'linear' and 'exponential'. Unrecognized
              values fall back to 'linear' together with the modified
              convention.`,
			defaultVal: "exponential",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), fitCmd.Flags()},
		},
		{
			name: "Flow.Buffer",
			usage: `
              Flow.Buffer is the volumetric flow rate of the buffered
              iodide–iodate stream in mL/min.`,
			defaultVal: 2.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), fitCmd.Flags()},
		},
		{
			name: "Flow.Acid",
			usage: `
              Flow.Acid is the volumetric flow rate of the acid stream
              in mL/min.`,
			defaultVal: 2.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), fitCmd.Flags()},
		},
		{
			name: "InitialConcentrations",
			usage: `
              InitialConcentrations is the comma-separated list of the 8
              species concentrations [mol/L] in the order
              H+, TRIS, TRISH+, I-, IO3-, I2, H2O, I3-.`,
			defaultVal: "0.03,0.0898,0.0898,0.03197,0.00634,0,0,0",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), fitCmd.Flags()},
		},
		{
			name: "Integrator.RelTol",
			usage: `
              Integrator.RelTol is the relative tolerance of the stiff
              integrator. It needs to be tight enough to resolve the fast
              buffer equilibrium against the slow Dushman reaction.`,
			defaultVal: 1.0e-15,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), fitCmd.Flags()},
		},
		{
			name: "Integrator.AbsTol",
			usage: `
              Integrator.AbsTol is the absolute tolerance of the stiff
              integrator, in the units of the species fluxes [mol/s].`,
			defaultVal: 1.0e-18,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), fitCmd.Flags()},
		},
		{
			name: "Integrator.MaxSteps",
			usage: `
              Integrator.MaxSteps caps the number of integrator step
              attempts per forward simulation.`,
			defaultVal: 1000000,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), fitCmd.Flags()},
		},
		{
			name: "TM",
			usage: `
              TM is the micro-mixing time in seconds: the value to simulate
              with for 'run', and the initial guess for 'fit'.`,
			shorthand:  "t",
			defaultVal: 0.2,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), fitCmd.Flags()},
		},
		{
			name: "Fit.Observable",
			usage: `
              Fit.Observable selects the measured quantity to fit against:
              'triiodide' (a triiodide concentration in mol/L) or
              'segregation' (a segregation index).`,
			defaultVal: "triiodide",
			flagsets:   []*pflag.FlagSet{fitCmd.Flags()},
		},
		{
			name: "Fit.Experimental",
			usage: `
              Fit.Experimental is the experimentally measured value of the
              chosen observable.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{fitCmd.Flags()},
		},
		{
			name: "Fit.Tolerance",
			usage: `
              Fit.Tolerance is the relative objective-improvement tolerance
              below which the mixing-time search terminates.`,
			defaultVal: 1.0e-8,
			flagsets:   []*pflag.FlagSet{fitCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("MICROMIX")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(fitCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("micromix: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "micromix",
	Short: "A micro-mixing time estimator for continuous two-stream reactors.",
	Long: `MicroMix simulates the parallel acid–base/iodine test reactions of the
incorporation micro-mixing model and fits the micro-mixing time against
a measured triiodide concentration or segregation index.

Configuration can be changed by using a configuration file (and providing
the path to the file using the --config flag), by using command-line
arguments, or by setting environment variables in the format
'MICROMIX_var' where 'var' is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of MicroMix.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("MicroMix v%s\n", micromix.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd runs one forward simulation and reports the derived
// observables.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one forward simulation.",
	Long: `run integrates the species-flux system once for the configured
mixing time and reports the final triiodide concentration, the final
segregation index, and the stoichiometric maximum yield.`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		sim, err := SimulationFromConfig(Cfg)
		if err != nil {
			return err
		}
		tm := Cfg.GetFloat64("TM")
		traj, err := sim.Simulator().Run(tm)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"tm_ms":       tm * 1000,
			"triiodide":   traj.FinalTriiodide(),
			"segregation": traj.FinalSegregation(),
			"yst":         traj.Yst(),
			"steps":       traj.Stats.Steps,
			"rejected":    traj.Stats.Rejected,
			"evals":       traj.Stats.Evaluations,
		}).Info("forward simulation finished")
		return nil
	},
}

// fitCmd estimates the mixing time from a measured observable.
var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Estimate the micro-mixing time.",
	Long: `fit searches for the micro-mixing time whose simulated observable
matches the experimental value, starting from the configured guess. A
run that exhausts its evaluation budget reports its last iterate along
with converged=false; it is never presented as a converged result.`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		sim, err := SimulationFromConfig(Cfg)
		if err != nil {
			return err
		}
		target := Cfg.GetFloat64("Fit.Experimental")
		var obj estimate.Objective
		switch observable := Cfg.GetString("Fit.Observable"); observable {
		case "triiodide":
			obj = sim.TriiodideObjective(target)
		case "segregation":
			obj = sim.SegregationObjective(target)
		default:
			return fmt.Errorf("micromix: invalid observable %q; valid options are 'triiodide' and 'segregation'", observable)
		}
		result, err := estimate.Fit(obj, Cfg.GetFloat64("TM"), Cfg.GetFloat64("Fit.Tolerance"))
		if err != nil {
			return err
		}
		log := logrus.WithFields(logrus.Fields{
			"tm_ms":       result.TM * 1000,
			"objective":   result.Objective,
			"evaluations": result.Evaluations,
			"converged":   result.Converged,
		})
		if result.Converged {
			log.Info("mixing-time fit converged")
		} else {
			log.Warn("mixing-time fit did not converge; reporting last iterate")
		}
		return nil
	},
}

// Concentrations parses a comma-separated concentration list into the
// 8-species vector.
func Concentrations(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	if len(fields) != micromix.NumSpecies {
		return nil, fmt.Errorf("micromix: %d initial concentrations; want %d", len(fields), micromix.NumSpecies)
	}
	o := make([]float64, len(fields))
	for i, f := range fields {
		v, err := cast.ToFloat64E(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("micromix: parsing concentration %d: %v", i, err)
		}
		o[i] = v
	}
	return o, nil
}

// SimulationFromConfig assembles an estimation/simulation setup from
// the configuration, converting the user-facing mL/min flow rates to
// internal units exactly once.
func SimulationFromConfig(cfg *viper.Viper) (*estimate.Simulation, error) {
	c0, err := Concentrations(cfg.GetString("InitialConcentrations"))
	if err != nil {
		return nil, err
	}
	v1, err := LitersPerSecond(FlowRate(cfg.GetFloat64("Flow.Buffer")))
	if err != nil {
		return nil, err
	}
	v2, err := LitersPerSecond(FlowRate(cfg.GetFloat64("Flow.Acid")))
	if err != nil {
		return nil, err
	}
	if v1 <= 0 || v2 <= 0 {
		return nil, fmt.Errorf("micromix: flow rates are (%g, %g) mL/min; want > 0",
			cfg.GetFloat64("Flow.Buffer"), cfg.GetFloat64("Flow.Acid"))
	}
	return &estimate.Simulation{
		Mech:       kinetics.Mechanism{},
		Convention: cfg.GetString("Model.Convention"),
		Shape:      cfg.GetString("Model.Shape"),
		V1:         v1,
		V2:         v2,
		C0:         c0,
		RelTol:     cfg.GetFloat64("Integrator.RelTol"),
		AbsTol:     cfg.GetFloat64("Integrator.AbsTol"),
		MaxSteps:   cfg.GetInt("Integrator.MaxSteps"),
	}, nil
}
