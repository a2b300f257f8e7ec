// Package core provides the CSV column cleaning pipeline.
//
// The package holds no state and has no UI or transport dependencies. It is
// used by the web server, the csvclean CLI and tests alike.
//
// # Pipeline
//
// Cleaning a file is three pure steps:
//
//  1. [Load] or [LoadReader] parses CSV bytes into an immutable [Table].
//  2. [Project] keeps a caller-chosen, ordered subset of columns and reports
//     row and column counts and the percentage of columns removed.
//  3. [Serialize] or [Write] renders a Table back to CSV.
//
//	t, err := core.Load(data)
//	if err != nil {
//	    return err
//	}
//	res := core.Project(t, []string{"Email Address", "Company Name"})
//	if res.Empty() {
//	    return core.ErrNoColumnsSelected
//	}
//	out, err := core.Serialize(res.Table)
//
// # Selections
//
// Unknown column names are skipped by [Project]. Programmatic callers that
// prefer a hard failure use [ProjectStrict]. Default column lists are plain
// configuration passed in by the caller; [Intersect] and [SelectMinimal]
// narrow them to the columns a file actually has, and [SelectAll] returns the
// header verbatim.
//
// # Input handling
//
// The loader skips a UTF-8 byte order mark, replaces invalid UTF-8 bytes, and
// can decode other charsets named in [LoadOptions]. Ragged rows fail with a
// [LoadError] of kind MalformedRow; a file without a header fails with kind
// EmptyFile.
//
// # Error Handling
//
// Errors are mapped to user-friendly messages with support codes by
// [MapError]. See error_messages.go for the code reference.
package core
