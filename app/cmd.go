// =================================================================================
//
//			fox-ambient - https://www.foxhollow.cc/projects/fox-audio/
//
//		 Fox Ambient is a small hearing assistant that routes the microphone
//	  through a light processing chain and straight back out to the speakers
//
//		 Copyright (c) 2024 Steve Cross <flip@foxhollow.cc>
//
//			Licensed under the Apache License, Version 2.0 (the "License");
//			you may not use this file except in compliance with the License.
//			You may obtain a copy of the License at
//
//			     http://www.apache.org/licenses/LICENSE-2.0
//
//			Unless required by applicable law or agreed to in writing, software
//			distributed under the License is distributed on an "AS IS" BASIS,
//			WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//			See the License for the specific language governing permissions and
//			limitations under the License.
//
// =================================================================================
package app

import (
	"fmt"
	"os"

	"fox-ambient/audio"
	"fox-ambient/controller"
	"fox-ambient/model"
	"fox-ambient/util"

	"github.com/spf13/cobra"
)

var (
	// arguments
	args model.CommandLineArgs

	rootCmd = &cobra.Command{
		Use:   "fox-ambient",
		Short: "Hear your surroundings through the microphone, live",
		Long: "fox-ambient captures the microphone, runs it through input gain, a compressor and a\n" +
			"high-pass filter, and plays the result on the speakers or headphones with minimal latency.",
		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := util.ReadConfig(&args)
			if err != nil {
				return err
			}

			return runEngine(config)
		},
	}

	probeCmd = &cobra.Command{
		Use:          "probe",
		Short:        "Check whether the configured audio backend can run on this host",
		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := util.ReadConfig(&args)
			if err != nil {
				return err
			}

			return runProbe(cmd, config)
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&args.ConfigFile, "config", "c", util.DefaultConfigFile, "Name or path of the yaml config file")
	flags.StringVarP(&args.Backend, "backend", "b", "", "Audio backend to use: malgo, jack or simulate")
	flags.BoolVar(&args.Simulate, "simulate", false, "Use the simulated backend (shortcut for --backend simulate)")
	flags.BoolVarP(&args.Verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.Flags().StringVarP(&args.OutputType, "output", "o", "", "Output type: tui or json")
	rootCmd.Flags().IntVar(&args.MeterInterval, "meter-interval", 0, "Level meter refresh interval in milliseconds")
	rootCmd.Flags().StringVar(&args.HttpListen, "http", "", "Serve metrics and the control API on this address")
	rootCmd.Flags().StringVar(&args.LogFile, "log-file", "", "Also write logs to this file (rotated)")
	rootCmd.Flags().BoolVar(&args.AutoStart, "start", false, "Start listening as soon as the audio engine is up")

	rootCmd.AddCommand(probeCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runProbe(cmd *cobra.Command, config *model.Config) error {
	backend, err := audio.NewBackend(config)
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := backend.Probe(); err != nil {
		return fmt.Errorf("%s: %s", backend.Name(), controller.UserMessage(err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: ready\n", backend.Name())
	return nil
}
