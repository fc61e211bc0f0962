package cmd

const (
	// Success is the same as EXIT_SUCCESS in C
	Success = iota

	// BadArgs passed to cli; not our fault.
	BadArgs

	// BadSource means the source could not be opened or read.
	// Probably not our fault.
	BadSource

	// BadScript means an apply script could not be parsed.
	BadScript

	// UnknownError is an uncategorized error, probably our fault.
	UnknownError
)
