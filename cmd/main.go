/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blnkfinance/wharf"
	"github.com/blnkfinance/wharf/config"
	"github.com/blnkfinance/wharf/database"
	"github.com/blnkfinance/wharf/internal/notification"
)

// Wharf is the command line entry point.
type Wharf struct {
	cmd *cobra.Command
}

// wharfInstance carries the engine and configuration built by preRun into each command.
type wharfInstance struct {
	wharf *wharf.Wharf
	cnf   *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and builds the engine before any subcommand runs.
func preRun(app *wharfInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			log.Fatal("error loading config ", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		// migrate only needs the configuration.
		if cmd.Name() == "up" || cmd.Name() == "down" || cmd.Name() == "config" {
			app.cnf = cnf
			return nil
		}

		w, err := setupWharf(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.wharf = w
		app.cnf = cnf
		return nil
	}
}

// setupWharf connects to PostgreSQL and wires the engine on top of it.
func setupWharf(cfg *config.Configuration) (*wharf.Wharf, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	w, err := wharf.NewWharf(db)
	if err != nil {
		return nil, fmt.Errorf("error creating wharf: %v", err)
	}
	return w, nil
}

func NewCLI() *Wharf {
	var configFile string
	app := &wharfInstance{}

	rootCmd := &cobra.Command{
		Use:   "wharf",
		Short: "Warehouse allocation and reservation engine",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./wharf.json", "Configuration file for wharf")
	rootCmd.PersistentPreRunE = preRun(app, &configFile)

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(migrateCommands(app))
	rootCmd.AddCommand(configCommands(app))

	return &Wharf{cmd: rootCmd}
}

func (w Wharf) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
