// Package access admits candidate log files for aggregation.
//
// Admission opens a file, checks that the opened file is regular and owned by
// the expected principal, and records its length at that instant. Nothing is
// read from a file that fails admission. Ownership is checked on the opened
// handle, so replacing the path with a symlink to someone else's file after
// discovery cannot smuggle that file into an archive.
package access
