// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import "flag"

// defaultConfigFile is read when neither -config nor I18NCACHE_CONFIGFILE is set.
const defaultConfigFile = "./config.yaml"

// registerConfigFlag defines -config on fs unless it already exists, which
// happens when LoadConfig runs more than once in a process.
func registerConfigFlag(fs *flag.FlagSet) *string {
	if f := fs.Lookup("config"); f != nil {
		v := f.Value.String()

		return &v
	}

	return fs.String("config", defaultConfigFile, "Path to the i18ncache YAML configuration file.")
}

// parseCommandLineArgs parses the process flags and returns the -config value.
func parseCommandLineArgs() string {
	configFilePath := registerConfigFlag(flag.CommandLine)

	if !flag.Parsed() {
		flag.Parse()
	}

	return *configFilePath
}
