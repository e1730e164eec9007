package view

// Status line texts.
const (
	StatusSignedIn       = "Signed in"
	StatusSignedOut      = "Signed out"
	StatusConnected      = "Connected to folder"
	StatusSessionExpired = "Session expired / 401"
	StatusCreateNetwork  = "Folder not created (connection error)"
)

// Notification texts.
const (
	msgSessionExpired  = "Session expired. Sign in again."
	msgSignInFirst     = "Sign in with Microsoft first."
	msgNoFolders       = "No folders."
	msgFoldersFailed   = "Failed to fetch the folder list."
	msgNoFolderName    = "Enter a folder name!"
	msgFolderMissing   = "Folder does not exist!"
	msgNoFiles         = "No files in folder."
	msgNoFileSelected  = "No file selected!"
	msgNoFileName      = "Enter a file name!"
	msgUploadFailed    = "Upload failed."
	msgDownloadFailed  = "Download failed."
	msgCreateNetwork   = "Folder not created. Check the connection or API."
	fmtUploaded        = "File %q uploaded."
	fmtCannotRead      = "Cannot read %q."
	fmtFolderDeleted   = "Folder %q deleted."
	fmtFolderNotDelete = "Could not delete folder %q."
	fmtFileDeleted     = "File %q deleted."
	fmtFileDownloaded  = "File %q downloaded."
	fmtFolderCreated   = "Folder %q created."
	fmtStatusCreated   = "Folder %q created"
	fmtStatusCreateErr = "Folder not created (HTTP %d)"
	fmtCreateFailed    = "Folder not created. %s"
)
