package api

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeAccessDenied   = "E_ACCESS_DENIED"   // access denied

	// Auth errors
	CodeAuthInvalidKey    = "E_AUTH_INVALID_KEY"    // api key is missing, unknown, or doesn't match the folder
	CodeAuthUnknownClient = "E_AUTH_UNKNOWN_CLIENT" // client id is not registered with the folder

	// Folder / file errors
	CodeFolderNotFound = "E_FOLDER_NOT_FOUND" // the folder id does not exist
	CodeInvalidPath    = "E_INVALID_PATH"     // the path violates the path discipline
	CodeFileNotFound   = "E_FILE_NOT_FOUND"   // no manifest entry for the path or file id

	// Blob errors
	CodeBlobPutFailed = "E_BLOB_PUT_FAILED" // failure while storing blob bytes
	CodeBlobGetFailed = "E_BLOB_GET_FAILED" // failure while reading blob bytes
)
