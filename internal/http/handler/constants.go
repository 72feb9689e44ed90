package handler

const (
	paramID     = "id"
	paramFileID = "file_id"

	queryFolderID = "folder_id"
	queryLimit    = "limit"
	querySearch   = "q"
	queryDryRun   = "dry_run"

	formFile     = "file"
	formFolderID = "folder_id"
	formPassword = "password"

	jsonKeyError            = "error"
	jsonKeyMessage          = "message"
	jsonKeyRequestID        = "request_id"
	jsonKeyPasswordRequired = "password_required"
	jsonKeyState            = "state"

	dispositionAttachment = "attachment"
	dispositionInline     = "inline"

	shareEventsLimit = 100
)

const (
	msgContentTypeJSONRequired = "content type must be application/json"
	msgInvalidRequestBody      = "invalid request body"
	msgInvalidFolderID         = "invalid folder id"
	msgInvalidFileID           = "invalid file id"
	msgInvalidShareID          = "invalid share id"
	msgInvalidLimit            = "limit must be a positive integer"
	msgMissingUploadFile       = "multipart field \"file\" is required"
	msgOpenUploadFailed        = "could not read the uploaded file"
	msgShareTargetRequired     = "exactly one of file_id and folder_id is required"
	msgPatchEmpty              = "nothing to update"
	msgInternalServerError     = "internal server error"
	msgStorageUnavailable      = "storage is temporarily unavailable, please try again later"
	msgFolderTrashed           = "folder moved to trash"
	msgFileTrashed             = "file moved to trash"
	msgFileDeleted             = "file deleted permanently"
	msgShareDeleted            = "share deleted"
	msgPasswordAccepted        = "password accepted"
)
