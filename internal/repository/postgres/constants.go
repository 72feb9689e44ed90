package postgres

import (
	"fmt"
	"time"
)

const (
	poolHealthCheckPeriod = time.Minute
	poolMaxConnLifetime   = time.Hour
	poolMaxConnIdleTime   = 30 * time.Minute
	dbPingTimeout         = 5 * time.Second

	// sweepAdvisoryLockKey identifies the retention sweep in pg_try_advisory_lock.
	sweepAdvisoryLockKey int64 = 0x646f637377656570

	errFileNotFound        = "file not found"
	errFolderNotFound      = "folder not found"
	errShareNotFound       = "share not found"
	errFolderNameTaken     = "a folder with this name already exists here"
	errShareTargetConflict = "share must target exactly one file or folder"

	errFailedParseDatabaseConfigFmt  = "failed to parse database config: %w"
	errFailedCreateConnectionPoolFmt = "failed to create connection pool: %w"
	errFailedPingDatabaseFmt         = "failed to ping database: %w"
	errFailedApplySchemaFmt          = "failed to apply schema: %w"

	errFailedStartTransactionFmt  = "failed to start transaction: %w"
	errFailedCommitTransactionFmt = "failed to commit transaction: %w"
	errFailedAcquireConnectionFmt = "failed to acquire connection: %w"
	errFailedAdvisoryLockFmt      = "failed to take advisory lock: %w"
	errFailedAdvisoryUnlockFmt    = "failed to release advisory lock: %w"

	errFailedCreateFileFmt      = "failed to create file: %w"
	errFailedGetFileFmt         = "failed to get file: %w"
	errFailedListFilesFmt       = "failed to list files: %w"
	errFailedScanFileFmt        = "failed to scan file: %w"
	errFailedUpdateFileFmt      = "failed to update file: %w"
	errFailedDeleteFileFmt      = "failed to delete file: %w"
	errFailedSumFileSizesFmt    = "failed to sum file sizes: %w"
	errFailedCountFilesFmt      = "failed to count files: %w"
	errFailedCreateFolderFmt    = "failed to create folder: %w"
	errFailedGetFolderFmt       = "failed to get folder: %w"
	errFailedListFoldersFmt     = "failed to list folders: %w"
	errFailedScanFolderFmt      = "failed to scan folder: %w"
	errFailedUpdateFolderFmt    = "failed to update folder: %w"
	errFailedCheckFolderNameFmt = "failed to check folder name: %w"
	errFailedCountFoldersFmt    = "failed to count folders: %w"
	errFailedListChildrenFmt    = "failed to list folder children: %w"
	errFailedPurgeFileFmt       = "failed to purge file: %w"
	errFailedPurgeFolderFmt     = "failed to purge folder: %w"

	errFailedCreateShareFmt      = "failed to create share: %w"
	errFailedGetShareFmt         = "failed to get share: %w"
	errFailedListSharesFmt       = "failed to list shares: %w"
	errFailedScanShareFmt        = "failed to scan share: %w"
	errFailedUpdateShareFmt      = "failed to update share: %w"
	errFailedDeleteShareFmt      = "failed to delete share: %w"
	errFailedLoadAllowedUsersFmt = "failed to load share allow-list: %w"
	errFailedSaveAllowedUsersFmt = "failed to save share allow-list: %w"
	errFailedIncrementAccessFmt  = "failed to increment share access count: %w"
	errFailedListTrashedFmt      = "failed to list trashed items: %w"
	errFailedScanTrashedFmt      = "failed to scan trashed item: %w"
	errFailedSelectOwnedIDsFmt   = "failed to select owned ids: %w"
	errFailedBulkUpdateFmt       = "failed to apply bulk update: %w"
	errFailedMarkFileAccessedFmt = "failed to mark file accessed: %w"
	errFailedSearchFmt           = "failed to search: %w"
	errFailedLockRowFmt          = "failed to lock row: %w"
	errFailedIterateRowsFmt      = "error iterating rows: %w"
)

var (
	errFailedParseDatabaseConfig  = func(err error) error { return fmt.Errorf(errFailedParseDatabaseConfigFmt, err) }
	errFailedCreateConnectionPool = func(err error) error { return fmt.Errorf(errFailedCreateConnectionPoolFmt, err) }
	errFailedPingDatabase         = func(err error) error { return fmt.Errorf(errFailedPingDatabaseFmt, err) }
	errFailedApplySchema          = func(err error) error { return fmt.Errorf(errFailedApplySchemaFmt, err) }
	errFailedStartTransaction     = func(err error) error { return fmt.Errorf(errFailedStartTransactionFmt, err) }
	errFailedCommitTransaction    = func(err error) error { return fmt.Errorf(errFailedCommitTransactionFmt, err) }
	errFailedAcquireConnection    = func(err error) error { return fmt.Errorf(errFailedAcquireConnectionFmt, err) }
	errFailedAdvisoryLock         = func(err error) error { return fmt.Errorf(errFailedAdvisoryLockFmt, err) }
	errFailedAdvisoryUnlock       = func(err error) error { return fmt.Errorf(errFailedAdvisoryUnlockFmt, err) }
	errFailedCreateFile           = func(err error) error { return fmt.Errorf(errFailedCreateFileFmt, err) }
	errFailedGetFile              = func(err error) error { return fmt.Errorf(errFailedGetFileFmt, err) }
	errFailedListFiles            = func(err error) error { return fmt.Errorf(errFailedListFilesFmt, err) }
	errFailedScanFile             = func(err error) error { return fmt.Errorf(errFailedScanFileFmt, err) }
	errFailedUpdateFile           = func(err error) error { return fmt.Errorf(errFailedUpdateFileFmt, err) }
	errFailedDeleteFile           = func(err error) error { return fmt.Errorf(errFailedDeleteFileFmt, err) }
	errFailedSumFileSizes         = func(err error) error { return fmt.Errorf(errFailedSumFileSizesFmt, err) }
	errFailedCountFiles           = func(err error) error { return fmt.Errorf(errFailedCountFilesFmt, err) }
	errFailedCreateFolder         = func(err error) error { return fmt.Errorf(errFailedCreateFolderFmt, err) }
	errFailedGetFolder            = func(err error) error { return fmt.Errorf(errFailedGetFolderFmt, err) }
	errFailedListFolders          = func(err error) error { return fmt.Errorf(errFailedListFoldersFmt, err) }
	errFailedScanFolder           = func(err error) error { return fmt.Errorf(errFailedScanFolderFmt, err) }
	errFailedUpdateFolder         = func(err error) error { return fmt.Errorf(errFailedUpdateFolderFmt, err) }
	errFailedCheckFolderName      = func(err error) error { return fmt.Errorf(errFailedCheckFolderNameFmt, err) }
	errFailedCountFolders         = func(err error) error { return fmt.Errorf(errFailedCountFoldersFmt, err) }
	errFailedListChildren         = func(err error) error { return fmt.Errorf(errFailedListChildrenFmt, err) }
	errFailedPurgeFile            = func(err error) error { return fmt.Errorf(errFailedPurgeFileFmt, err) }
	errFailedPurgeFolder          = func(err error) error { return fmt.Errorf(errFailedPurgeFolderFmt, err) }
	errFailedCreateShare          = func(err error) error { return fmt.Errorf(errFailedCreateShareFmt, err) }
	errFailedGetShare             = func(err error) error { return fmt.Errorf(errFailedGetShareFmt, err) }
	errFailedListShares           = func(err error) error { return fmt.Errorf(errFailedListSharesFmt, err) }
	errFailedScanShare            = func(err error) error { return fmt.Errorf(errFailedScanShareFmt, err) }
	errFailedUpdateShare          = func(err error) error { return fmt.Errorf(errFailedUpdateShareFmt, err) }
	errFailedDeleteShare          = func(err error) error { return fmt.Errorf(errFailedDeleteShareFmt, err) }
	errFailedLoadAllowedUsers     = func(err error) error { return fmt.Errorf(errFailedLoadAllowedUsersFmt, err) }
	errFailedSaveAllowedUsers     = func(err error) error { return fmt.Errorf(errFailedSaveAllowedUsersFmt, err) }
	errFailedIncrementAccess      = func(err error) error { return fmt.Errorf(errFailedIncrementAccessFmt, err) }
	errFailedListTrashed          = func(err error) error { return fmt.Errorf(errFailedListTrashedFmt, err) }
	errFailedScanTrashed          = func(err error) error { return fmt.Errorf(errFailedScanTrashedFmt, err) }
	errFailedSelectOwnedIDs       = func(err error) error { return fmt.Errorf(errFailedSelectOwnedIDsFmt, err) }
	errFailedBulkUpdate           = func(err error) error { return fmt.Errorf(errFailedBulkUpdateFmt, err) }
	errFailedMarkFileAccessed     = func(err error) error { return fmt.Errorf(errFailedMarkFileAccessedFmt, err) }
	errFailedSearch               = func(err error) error { return fmt.Errorf(errFailedSearchFmt, err) }
	errFailedLockRow              = func(err error) error { return fmt.Errorf(errFailedLockRowFmt, err) }
	errFailedIterateRows          = func(err error) error { return fmt.Errorf(errFailedIterateRowsFmt, err) }
)
