package service

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
	maxBulkItems       = 1000
	percentScale       = 100

	msgFolderNameTaken     = "a folder with this name already exists here"
	msgFolderCycle         = "a folder cannot be moved into itself or one of its subfolders"
	msgFolderHierarchyLoop = "folder hierarchy is corrupt"
	msgParentTrashed       = "the destination folder is in the trash"
	msgFileNotTrashed      = "only files in the trash can be deleted permanently"
	msgQuotaExceeded       = "storage quota exceeded"
	msgUploadFailed        = "could not store the file, please try again later"
	msgDownloadFailed      = "could not read the file, please try again later"
	msgDeleteBlobFailed    = "could not delete the file, please try again later"
	msgBulkNoItems         = "no items selected"
	msgBulkTooManyItems    = "too many items selected"
	msgBulkUnknownAction   = "unknown bulk action"
	msgShareTrashedTarget  = "items in the trash cannot be shared"
	msgShareExpiryInPast   = "expiry must be in the future"
	msgShareFileRequired   = "a file must be selected from the shared folder"
	msgFileNotFound        = "file not found"
	msgFolderNotFound      = "folder not found"
	msgVerificationFailed  = "could not check the share password, please try again later"
	msgSessionRequired     = "a visitor session is required to verify a password"
	msgHashPasswordFailed  = "failed to hash share password"
)
