// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

type MarketsConfig struct {
	// Server: where the market data gateway lives
	Server ServerConfig `yaml:"server"`

	// Chat: interactive session defaults
	Chat ChatConfig `yaml:"chat"`

	// Backup: defaults for gateway store backups
	Backup BackupConfig `yaml:"backup"`
}

type ServerConfig struct {
	URL string `yaml:"url"` // e.g. http://localhost:8080
}

type ChatConfig struct {
	User           string `yaml:"user,omitempty"`            // attached to new sessions
	DefaultSession string `yaml:"default_session,omitempty"` // resumed when chat starts without --session
}

type BackupConfig struct {
	// Bucket is the GCS bucket backups are uploaded to when --bucket
	// is not given. Empty disables the upload step.
	Bucket string `yaml:"bucket,omitempty"`

	// Credentials is a path to a service account key file. Empty uses
	// Application Default Credentials.
	Credentials string `yaml:"credentials,omitempty"`
}

func DefaultConfig() MarketsConfig {
	return MarketsConfig{
		Server: ServerConfig{
			URL: "http://localhost:8080",
		},
		Chat:   ChatConfig{},
		Backup: BackupConfig{},
	}
}
