// Package logs reads the modelsort log file for `modelsort logs`.
//
// Last returns the trailing lines of a file with bounded memory, and Follow
// polls from an offset and emits lines as they are appended until the context
// is cancelled.
package logs
