// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/AleutianAI/AleutianMarkets/cmd/markets/config"
	"github.com/AleutianAI/AleutianMarkets/cmd/markets/gcs"
	"github.com/AleutianAI/AleutianMarkets/pkg/ux"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	backupOut         string // Local destination file
	backupSince       uint64 // Version counter to start the incremental from
	backupBucket      string // GCS bucket to upload to (optional)
	backupObject      string // GCS object name (optional)
	backupCredentials string // Service account key path (optional)
	backupJSONOutput  bool   // Output as JSON for scripting
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// backupCmd streams a backup archive of the gateway store to a local file,
// with optional upload to Google Cloud Storage.
//
// # Description
//
// GET /v1/admin/backup streams the gateway's session-and-cache store as a
// Badger backup archive. --since requests an incremental archive from a
// prior version counter; 0 means a full backup. When a bucket is configured
// (flag or config file) the archive is uploaded after the download.
//
// # Examples
//
//	markets backup                                  # Full backup
//	markets backup --out inc.bak --since 1842       # Incremental
//	markets backup --bucket aleutian-backups        # Download then upload
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Download a backup archive of the gateway store",
	Long: `Streams a backup archive of the gateway's session and cache store.

The archive is a Badger backup: restore it with the gateway's restore
tooling, or keep it for disaster recovery. Pass --since with the version
counter of a previous backup to download only the changes since then.

When a GCS bucket is configured (--bucket or backup.bucket in the config
file) the archive is also uploaded. Credentials come from --credentials,
backup.credentials, or Application Default Credentials.

Examples:
  markets backup                               # Full backup to gateway.badger.bak
  markets backup --out inc.bak --since 1842    # Incremental backup
  markets backup --bucket aleutian-backups     # Download, then upload`,
	Run: runBackupCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	backupCmd.Flags().StringVar(&backupOut, "out", "gateway.badger.bak",
		"Destination file for the backup archive")
	backupCmd.Flags().Uint64Var(&backupSince, "since", 0,
		"Version counter of the previous backup (0 = full backup)")
	backupCmd.Flags().StringVar(&backupBucket, "bucket", "",
		"GCS bucket to upload the archive to (default: backup.bucket from the config file)")
	backupCmd.Flags().StringVar(&backupObject, "object", "",
		"GCS object name (default: backups/<timestamp>-<filename>)")
	backupCmd.Flags().StringVar(&backupCredentials, "credentials", "",
		"Service account key file (default: backup.credentials, then ADC)")
	backupCmd.Flags().BoolVar(&backupJSONOutput, "json", false,
		"Output as JSON for scripting")

	rootCmd.AddCommand(backupCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runBackupCommand downloads the archive and optionally uploads it to GCS.
func runBackupCommand(cmd *cobra.Command, args []string) {
	baseURL := getGatewayBaseURL()

	bucket := backupBucket
	if bucket == "" {
		bucket = config.Global.Backup.Bucket
	}
	credentials := backupCredentials
	if credentials == "" {
		credentials = config.Global.Backup.Credentials
	}

	result := BackupResult{Path: backupOut, Since: backupSince}

	if err := downloadBackup(baseURL, backupOut, backupSince); err != nil {
		log.Fatalf("Backup failed: %v", err)
	}

	info, err := os.Stat(backupOut)
	if err != nil {
		log.Fatalf("Backup file missing after download: %v", err)
	}
	result.SizeBytes = info.Size()

	if bucket != "" {
		objectName := backupObject
		if objectName == "" {
			objectName = fmt.Sprintf("backups/%s-%s",
				time.Now().UTC().Format("20060102T150405Z"), filepath.Base(backupOut))
		}
		bucketPath, err := uploadBackup(bucket, credentials, backupOut, objectName)
		if err != nil {
			log.Fatalf("Upload failed: %v", err)
		}
		result.Uploaded = true
		result.BucketPath = bucketPath
	}

	if backupJSONOutput {
		if err := OutputJSON(result, false); err != nil {
			os.Exit(CLIExitError)
		}
		return
	}

	ux.Success(fmt.Sprintf("Backup written to %s (%s)",
		result.Path, humanize.Bytes(uint64(result.SizeBytes))))
	if result.Uploaded {
		ux.Success(fmt.Sprintf("Uploaded to %s", result.BucketPath))
	}
}

// downloadBackup streams GET /v1/admin/backup into outPath.
func downloadBackup(baseURL, outPath string, since uint64) error {
	targetURL := fmt.Sprintf("%s/v1/admin/backup?since=%s", baseURL, strconv.FormatUint(since, 10))

	// The stream runs until Badger finishes the snapshot, so no client
	// timeout here; large stores legitimately take minutes.
	client := &http.Client{}
	resp, err := client.Get(targetURL)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(bodyBytes))
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create the backup file %s: %w", outPath, err)
	}

	spinner := ux.NewSpinner("Downloading backup")
	if !backupJSONOutput && ux.ShouldShowProgress() {
		spinner.Start()
	}
	_, copyErr := io.Copy(outFile, resp.Body)
	spinner.Stop()

	if copyErr != nil {
		outFile.Close()
		return fmt.Errorf("failed to write the backup stream: %w", copyErr)
	}
	if err := outFile.Close(); err != nil {
		return fmt.Errorf("failed to close the backup file: %w", err)
	}
	return nil
}

// uploadBackup pushes the archive to GCS and returns its gs:// URL.
func uploadBackup(bucket, credentials, localPath, objectName string) (string, error) {
	ctx := context.Background()

	client, err := gcs.NewClient(ctx, bucket, credentials)
	if err != nil {
		return "", err
	}
	defer client.Close()

	spinner := ux.NewSpinner(fmt.Sprintf("Uploading to %s", client.ObjectURL(objectName)))
	if !backupJSONOutput && ux.ShouldShowProgress() {
		spinner.Start()
	}
	err = client.UploadFile(ctx, localPath, objectName)
	spinner.Stop()

	if err != nil {
		return "", err
	}
	return client.ObjectURL(objectName), nil
}
