package app

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmailExists       = errors.New("email already registered")
	ErrInvalidCredential = errors.New("incorrect email or password")
	ErrInactiveUser      = errors.New("inactive user")
	ErrUserNotFound      = errors.New("user not found")

	ErrWorkspaceNotFound = errors.New("workspace not found")

	ErrNotPDF          = errors.New("only PDF files are supported")
	ErrFileTooLarge    = errors.New("file exceeds upload limit")
	ErrEmptyExtraction = errors.New("could not extract text from PDF")
	ErrDownloadFailed  = errors.New("could not download PDF from URL")
	ErrMessageEmpty    = errors.New("message is empty")
	ErrQueryRequired   = errors.New("query parameter is required")
)
